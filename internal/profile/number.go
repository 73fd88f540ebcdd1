package profile

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a leniently decoded numeric field. The companion API is not consistent
// about sending numbers as numbers, so anything is accepted at decode time and the
// conversion is decided by the caller through Int.
type Number struct {
	raw     string
	present bool
}

func NewNumber(n int) Number {
	return Number{raw: strconv.Itoa(n), present: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	n.present = true
	if bytes.Equal(data, []byte("null")) {
		n.raw = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}
		n.raw = strings.TrimSpace(s)
		return nil
	}
	n.raw = string(data)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if value, ok := n.Int(); ok {
		return []byte(strconv.Itoa(value)), nil
	}
	return []byte("null"), nil
}

// Present is false when the key was missing from the document.
func (n Number) Present() bool {
	return n.present
}

// Raw is the value as it was sent.
func (n Number) Raw() string {
	return n.raw
}

// Int converts the value rounding half up. ok is false when the field is missing, not
// numeric, negative or too large for an int: prices and quantities are never negative.
func (n Number) Int() (value int, ok bool) {
	if !n.present || n.raw == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(n.raw); err == nil {
		if i < 0 {
			return 0, false
		}
		return i, true
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	rounded := math.Floor(f + 0.5)
	// float64(math.MaxInt) rounds up to 2^63, which itself does not fit
	if rounded < 0 || rounded >= float64(math.MaxInt) {
		return 0, false
	}
	return int(rounded), true
}
