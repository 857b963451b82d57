package money

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Text is a numeric form value kept in its textual form. It decodes JSON
// strings, numbers and null, and always encodes as a string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Empty reports whether no value was entered.
func (t Text) Empty() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Decimal parses the value, falling back to zero when empty or invalid.
func (t Text) Decimal() decimal.Decimal {
	return Parse(string(t))
}

// Parse parses a numeric form value. Empty or invalid input yields zero.
func Parse(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format2 renders an amount with exactly two decimal places.
func Format2(d decimal.Decimal) Text {
	return Text(d.StringFixed(2))
}

// Format1 renders a quantity with exactly one decimal place.
func Format1(d decimal.Decimal) Text {
	return Text(d.StringFixed(1))
}

// Equal compares two form values numerically.
func Equal(a, b Text) bool {
	return a.Decimal().Equal(b.Decimal())
}
