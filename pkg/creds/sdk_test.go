package creds

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fixedProvider struct {
	creds *Credentials
	err   error
}

func (p *fixedProvider) Credentials(ctx context.Context) (*Credentials, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.creds, nil
}

func TestRetrieveAdaptsCredentials(t *testing.T) {
	provider := &fixedProvider{creds: credentialsExpiring(time.Now().Add(time.Hour))}
	sdk := NewSDKProvider(provider, 5*time.Minute)

	value, err := sdk.Retrieve()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if value.AccessKeyID != "AKIATEST" || value.SecretAccessKey != "secret" || value.SessionToken != "session" {
		t.Error("unexpected value:", value)
	}
	if value.ProviderName != SDKProviderName {
		t.Error("unexpected provider name:", value.ProviderName)
	}
	if sdk.IsExpired() {
		t.Error("expected fresh credentials to not be expired")
	}
}

func TestRetrieveExpiresWithCredentials(t *testing.T) {
	provider := &fixedProvider{creds: credentialsExpiring(time.Now().Add(time.Minute))}
	sdk := NewSDKProvider(provider, 5*time.Minute)

	if _, err := sdk.Retrieve(); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if !sdk.IsExpired() {
		t.Error("expected credentials expiring inside the margin to read as expired")
	}
}

func TestRetrievePropagatesErrors(t *testing.T) {
	provider := &fixedProvider{err: errors.New("exchange down")}
	sdk := NewSDKProvider(provider, 5*time.Minute)

	if _, err := sdk.Retrieve(); err == nil {
		t.Error("expected an error")
	}
}
