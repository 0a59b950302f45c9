package domain

// Credentials API key pair used to sign exchange requests.
// Both fields are redacted from every string representation.
type Credentials struct {
	APIKey    string
	APISecret string
}

// NewCredentials creates a new Credentials.
func NewCredentials(key, secret string) Credentials {
	return Credentials{APIKey: key, APISecret: secret}
}

// IsComplete reports whether both key and secret are set.
func (c Credentials) IsComplete() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// String returns a redacted representation.
func (c Credentials) String() string {
	return "Credentials{APIKey:***, APISecret:***}"
}

// GoString returns a redacted representation for %#v.
func (c Credentials) GoString() string {
	return c.String()
}

// MarshalJSON keeps credentials out of JSON encoded logs.
func (c Credentials) MarshalJSON() ([]byte, error) {
	return []byte(`"***"`), nil
}
