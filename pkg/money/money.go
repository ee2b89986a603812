package money

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is the wire representation of a monetary value. It always renders
// as an object so clients never have to guess the currency:
//
//	{"amount": 1500.25, "currency": "USD"}
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// MarshalJSON emits the amount as a bare JSON number, not a quoted string.
func (m Money) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"amount":`)
	buf.WriteString(m.Amount.String())
	buf.WriteString(`,"currency":`)
	currency, err := json.Marshal(m.Currency)
	if err != nil {
		return nil, err
	}
	buf.Write(currency)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var in Input
	if err := in.UnmarshalJSON(data); err != nil {
		return err
	}
	m.Amount = in.Amount
	m.Currency = in.Currency
	return nil
}

// Input is the request-side counterpart of Money. Clients may send either a
// bare number or the {amount, currency} object; both normalize here so the
// rest of the service only ever sees decimals.
type Input struct {
	Amount   decimal.Decimal
	Currency string

	set bool
}

func (in *Input) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var obj struct {
			Amount   decimal.Decimal `json:"amount"`
			Currency string          `json:"currency"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		in.Amount = obj.Amount
		in.Currency = NormalizeCurrency(obj.Currency)
		in.set = true
		return nil
	}

	var amount decimal.Decimal
	if err := json.Unmarshal(trimmed, &amount); err != nil {
		return err
	}
	in.Amount = amount
	in.set = true
	return nil
}

// IsSet reports whether the field was present in the request payload.
func (in Input) IsSet() bool {
	return in.set
}

func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// Round2 rounds to cent precision, the scale of every stored amount.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round4 rounds to the scale used by quantities and unit prices.
func Round4(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}
