// Package secret wraps credential strings so they cannot leak through
// logging, formatting, or JSON serialization.
package secret

import "os"

// Redacted is the placeholder rendered in place of a secret's value.
const Redacted = "[REDACTED]"

// Secret holds a credential string. The zero value is an empty secret.
// The payload is only reachable through Expose; every formatting path
// renders Redacted instead.
type Secret struct {
	value string
}

// New wraps the given value. No validation is performed; an invalid
// secret simply produces signatures the venue rejects.
func New(value string) Secret {
	return Secret{value: value}
}

// FromEnv wraps the value of the named environment variable.
// An unset variable yields an empty secret.
func FromEnv(key string) Secret {
	return Secret{value: os.Getenv(key)}
}

// Expose returns the stored value. This is the only read path.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether no value is stored.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

// String implements fmt.Stringer and always returns Redacted.
func (s Secret) String() string {
	return Redacted
}

// GoString keeps %#v output redacted as well.
func (s Secret) GoString() string {
	return "secret.Secret(" + Redacted + ")"
}

// MarshalJSON renders the placeholder so secrets embedded in config or
// error payloads never serialize their value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// UnmarshalJSON accepts a plain JSON string.
func (s *Secret) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		s.value = string(data[1 : len(data)-1])
		return nil
	}
	s.value = string(data)
	return nil
}
