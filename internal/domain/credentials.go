package domain

import "errors"

// Environment selects which FooPay application the adapter talks to.
type Environment string

const (
	EnvSandbox Environment = "sandbox"
	EnvLive    Environment = "live"
)

func (e Environment) Valid() bool {
	return e == EnvSandbox || e == EnvLive
}

var ErrIncompleteCredentials = errors.New("provider credentials are incomplete")

// Credentials is the per-environment credential record populated by the
// setup flow. The lifecycle engine only ever reads it.
type Credentials struct {
	Environment  Environment
	AppID        string
	BearerToken  string
	WebhookToken string
}

// Validate reports whether the record is usable for outbound calls and
// webhook verification. All three fields must be present before any
// session may be created or any webhook accepted.
func (c Credentials) Validate() error {
	if c.AppID == "" || c.BearerToken == "" || c.WebhookToken == "" {
		return ErrIncompleteCredentials
	}
	return nil
}
