package testutil

import (
	"context"

	"github.com/uswitch/oidc-creds/pkg/creds"
)

// StubProvider returns fake credential results
type StubProvider struct {
	Results   []CredentialsResult
	callCount int
}

// CredentialsResult is a return value from Credentials
type CredentialsResult struct {
	Credentials *creds.Credentials
	Error       error
}

// Credentials pops the next queued result. The last result repeats once
// the queue is exhausted.
func (p *StubProvider) Credentials(ctx context.Context) (*creds.Credentials, error) {
	if p.callCount == len(p.Results) {
		v := p.Results[len(p.Results)-1]
		return v.Credentials, v.Error
	}

	currentVal := p.Results[p.callCount]
	p.callCount = p.callCount + 1

	return currentVal.Credentials, currentVal.Error
}

func (p *StubProvider) Calls() int {
	return p.callCount
}

func (p *StubProvider) WithCredentials(results ...CredentialsResult) *StubProvider {
	p.Results = results
	return p
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}
