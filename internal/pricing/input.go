package pricing

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Input is a numeric form field. Raw keeps exactly what the user typed so it
// can be echoed back for display while Value carries the parsed amount.
// Invalid or empty input is never an error: it simply prices as zero.
type Input struct {
	Raw   string
	Value decimal.Decimal
	Valid bool
}

// ParseInput parses user-entered text leniently. Surrounding whitespace and
// thousands separators are ignored ("1,250.50" parses as 1250.5).
func ParseInput(raw string) Input {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return Input{Raw: raw}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Input{Raw: raw}
	}
	return Input{Raw: raw, Value: d, Valid: true}
}

// Number wraps an already-known amount.
func Number(d decimal.Decimal) Input {
	return Input{Raw: d.String(), Value: d, Valid: true}
}

// Int wraps an integer amount.
func Int(n int64) Input {
	return Number(decimal.NewFromInt(n))
}

// Decimal returns the value used for computation: zero for invalid input.
func (in Input) Decimal() decimal.Decimal {
	if !in.Valid {
		return decimal.Zero
	}
	return in.Value
}

// String returns the raw text.
func (in Input) String() string {
	return in.Raw
}

// MarshalJSON emits a JSON number when the raw text is already canonical and
// the raw string otherwise, so partially typed values survive a round trip.
func (in Input) MarshalJSON() ([]byte, error) {
	if in.Valid && in.Raw == in.Value.String() {
		return []byte(in.Value.String()), nil
	}
	return json.Marshal(in.Raw)
}

// UnmarshalJSON accepts numbers, strings and null.
func (in *Input) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*in = Input{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = ParseInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*in = ParseInput(n.String())
	return nil
}
