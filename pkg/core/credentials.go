package core

// Credentials holds the API authentication material for one backend account.
type Credentials struct {
	// APIKey is the public key identifier.
	APIKey string `json:"apiKey"`
	// Secret is the private key used for signing.
	Secret string `json:"secret"`
	// Password is the additional static secret (passphrase) some schemes
	// transmit as a header.
	Password string `json:"password,omitempty"`
}

// Required declares which credential fields a backend insists on.
type Required struct {
	APIKey   bool `json:"apiKey"`
	Secret   bool `json:"secret"`
	Password bool `json:"password"`
}

// Check returns the name of the first missing required field, or "" when the
// credentials satisfy the requirements. A nil receiver requires nothing.
func (r Required) Check(c *Credentials) string {
	if c == nil {
		c = &Credentials{}
	}
	if r.APIKey && c.APIKey == "" {
		return "apiKey"
	}
	if r.Secret && c.Secret == "" {
		return "secret"
	}
	if r.Password && c.Password == "" {
		return "password"
	}
	return ""
}
