// Package verifier defines the contract for external mailbox verification
// providers.
package verifier

import "context"

// Outcome is a provider's verdict on one address.
type Outcome struct {
	Address     string `json:"address"`
	Deliverable bool   `json:"deliverable"`
	Status      string `json:"status"`
	Code        string `json:"code,omitempty"`
}

// TokenProvider exchanges an account API key for a short-lived session token.
type TokenProvider interface {
	Token(ctx context.Context, apiKey string) (string, error)
}

// Checker verifies a single address using a session token. An error means the
// provider could not be reached or did not answer; a provider answer of any
// kind is an Outcome.
type Checker interface {
	Verify(ctx context.Context, address, token string) (Outcome, error)
}

// Provider is a complete verification backend.
type Provider interface {
	TokenProvider
	Checker
	Name() string
}
