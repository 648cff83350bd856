package core

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an arbitrary-precision decimal that unmarshals from the
// quoted numeric strings venues use for prices and quantities.
type Decimal struct {
	apd.Decimal
}

// ParseDecimal parses a decimal string without float loss.
func ParseDecimal(s string) (Decimal, error) {
	var d Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// UnmarshalJSON accepts both a quoted decimal string and a bare JSON
// number.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		d.Decimal = apd.Decimal{}
		return nil
	}
	if _, _, err := d.SetString(s); err != nil {
		return fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return nil
}

// MarshalJSON renders the decimal as a quoted string, matching the
// venue wire format.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Text('f') + `"`), nil
}
