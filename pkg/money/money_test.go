package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyMarshalJSON(t *testing.T) {
	m := New(decimal.RequireFromString("1500.25"), "usd")

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":1500.25,"currency":"USD"}`, string(b))
}

func TestMoneyMarshalJSONWholeAmount(t *testing.T) {
	m := New(decimal.NewFromInt(2000), "USD")

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"amount":2000,"currency":"USD"}`, string(b))
}

func TestInputUnmarshalBareNumber(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`150.5`), &in))

	assert.True(t, in.IsSet())
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("150.5")))
	assert.Empty(t, in.Currency)
}

func TestInputUnmarshalObject(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 99.99, "currency": "idr"}`), &in))

	assert.True(t, in.IsSet())
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("99.99")))
	assert.Equal(t, "IDR", in.Currency)
}

func TestInputUnmarshalQuotedNumber(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`"42.10"`), &in))

	assert.True(t, in.IsSet())
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("42.1")))
}

func TestInputUnmarshalNull(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`null`), &in))
	assert.False(t, in.IsSet())
}

func TestRounding(t *testing.T) {
	assert.Equal(t, "10.13", Round2(decimal.RequireFromString("10.125")).String())
	assert.Equal(t, "0.0825", Round4(decimal.RequireFromString("0.08251")).String())
}
