package authclient

import (
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/voicegate/internal/util"
)

// Credentials holds a username and a password sealed in a memguard Enclave.
// Call Destroy when the request has been sent.
type Credentials struct {
	username  string
	password  *memguard.Enclave
	destroyed bool
}

// NewCredentials trims and NFKC-normalizes both values and rejects blanks
// with ErrValidation.
func NewCredentials(username, password string) (*Credentials, error) {
	u := util.NormalizeCredential(username)
	p := util.NormalizeCredential(password)
	if u == "" || p == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	return &Credentials{
		username: u,
		password: memguard.NewEnclave([]byte(p)),
	}, nil
}

// Username returns the normalized username.
func (c *Credentials) Username() string {
	if c == nil || c.destroyed {
		return ""
	}
	return c.username
}

// Valid reports whether the credentials can still be sent.
func (c *Credentials) Valid() bool {
	return c != nil && !c.destroyed && c.username != "" && c.password != nil
}

// withPassword opens the enclave for the duration of fn.
func (c *Credentials) withPassword(fn func(password []byte) error) error {
	if !c.Valid() {
		return fmt.Errorf("%w: credentials are missing or destroyed", ErrValidation)
	}
	buf, err := c.password.Open()
	if err != nil {
		return fmt.Errorf("opening password enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Destroy drops the sealed password. The credentials are unusable afterwards.
func (c *Credentials) Destroy() {
	if c == nil || c.destroyed {
		return
	}
	c.password = nil
	c.username = ""
	c.destroyed = true
}
