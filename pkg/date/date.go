// Package date provides a calendar date without a time component.
// Documents carry issue/due/transaction dates that must survive JSON and
// database round trips as plain YYYY-MM-DD values.
package date

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const layout = "2006-01-02"

// Date is a calendar day. The zero value is the zero time.
type Date struct {
	t time.Time
}

func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates a timestamp to its UTC calendar day.
func FromTime(t time.Time) Date {
	u := t.UTC()
	return New(u.Year(), u.Month(), u.Day())
}

// Parse reads a YYYY-MM-DD string.
func Parse(value string) (Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, err
	}
	return FromTime(t), nil
}

func (d Date) IsZero() bool        { return d.t.IsZero() }
func (d Date) Time() time.Time     { return d.t }
func (d Date) String() string      { return d.t.Format(layout) }
func (d Date) Equal(o Date) bool   { return d.t.Equal(o.t) }
func (d Date) Before(o Date) bool  { return d.t.Before(o.t) }
func (d Date) After(o Date) bool   { return d.t.After(o.t) }
func (d Date) AddDays(n int) Date  { return FromTime(d.t.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return FromTime(d.t.AddDate(0, n, 0)) }

// DaysSince returns the whole days elapsed from o to d; negative when d
// precedes o.
func (d Date) DaysSince(o Date) int {
	return int(d.t.Sub(o.t) / (24 * time.Hour))
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as a timestamp at UTC midnight.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.t, nil
}

func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("unsupported date column type %T", value)
	}
}

func (d *Date) scanString(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*d = Date{}
		return nil
	}
	// Drivers may return either the bare date or a full timestamp.
	if len(value) >= len(layout) {
		if parsed, err := Parse(value[:len(layout)]); err == nil {
			*d = parsed
			return nil
		}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return err
	}
	*d = FromTime(t)
	return nil
}

// GormDataType tells gorm to render the column as a date.
func (Date) GormDataType() string { return "date" }

// Today resolves the current calendar day in the supplied location.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return New(local.Year(), local.Month(), local.Day())
}
