package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// NumericInput is a numeric form field. Browsers post these as strings, API
// clients as numbers, and an untouched field as null; all three decode without
// error so that the validator, not the JSON decoder, reports bad values.
type NumericInput struct {
	raw string
	set bool
}

// NumericFrom wraps raw form text.
func NumericFrom(raw string) NumericInput {
	return NumericInput{raw: raw, set: true}
}

// NumericValue wraps an already parsed number.
func NumericValue(d decimal.Decimal) NumericInput {
	return NumericInput{raw: d.String(), set: true}
}

// IsSet reports whether the field carried any text at all.
func (n NumericInput) IsSet() bool {
	return n.set && strings.TrimSpace(n.raw) != ""
}

// Raw returns the text as received.
func (n NumericInput) Raw() string {
	return n.raw
}

// Decimal coerces the field to a number. An empty string counts as zero and a
// missing field as not-a-number, matching how the admin forms have always
// been interpreted.
func (n NumericInput) Decimal() (decimal.Decimal, bool) {
	if !n.set {
		return decimal.Zero, false
	}
	s := strings.TrimSpace(n.raw)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (n *NumericInput) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = NumericInput{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = NumericInput{raw: str, set: true}
		return nil
	}
	*n = NumericInput{raw: s, set: true}
	return nil
}

func (n NumericInput) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	if d, ok := n.Decimal(); ok && n.IsSet() {
		return []byte(d.String()), nil
	}
	return json.Marshal(n.raw)
}
