// Copyright 2022 uSwitch
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the process configuration. It is populated once at
// startup from flags and environment variables, validated, and then shared
// read-only by every component.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uswitch/oidc-creds/pkg/errs"
)

// ProviderType selects how an identity token is exchanged for storage
// credentials. The choice also fixes the client-credentials grant shape.
type ProviderType string

const (
	// WebIdentity obtains a token whose audience claim is recognised by the
	// cloud federation endpoint and exchanges it directly with STS.
	WebIdentity ProviderType = "web-identity"

	// Vending posts the token to a validating intermediary that inspects
	// its claims and performs the role assumption server-side. Used with
	// providers whose client-credentials tokens carry no usable audience.
	Vending ProviderType = "vending"
)

const (
	// DefaultRefreshMargin is how soon before expiry cached tokens and
	// credentials are treated as stale.
	DefaultRefreshMargin = 5 * time.Minute

	// DefaultSessionDuration is the session length requested from the
	// federation endpoint.
	DefaultSessionDuration = time.Hour

	// MinSessionDuration is the shortest session STS will grant.
	MinSessionDuration = 15 * time.Minute

	// DefaultHTTPTimeout bounds each outbound call to the token endpoint
	// and the exchange endpoint.
	DefaultHTTPTimeout = 10 * time.Second
)

type Config struct {
	Provider ProviderType

	// Token endpoint and client-credentials grant.
	TokenURL         string
	ClientID         string
	ClientSecret     string
	ClientSecretFile string
	Audience         string   // web-identity grant
	Scopes           []string // vending grant, space-joined on the wire

	// Exchange step.
	RoleARN         string // web-identity: role to assume
	SessionName     string
	SessionDuration time.Duration
	ExchangeURL     string // vending: credentials API

	// Contextual metadata copied onto issued credentials.
	Region string
	Bucket string
	Prefix string

	RefreshMargin time.Duration
	HTTPTimeout   time.Duration
}

// Default returns a Config with the documented defaults applied. Callers
// fill in the rest from flags/environment before Validate.
func Default() *Config {
	return &Config{
		Provider:        WebIdentity,
		SessionDuration: DefaultSessionDuration,
		RefreshMargin:   DefaultRefreshMargin,
		HTTPTimeout:     DefaultHTTPTimeout,
	}
}

// Validate checks that every value the configured provider type needs is
// present, loads the client secret from file when configured that way, and
// fills the default session name. All problems are ConfigErrors.
func (c *Config) Validate() error {
	if c.Provider != WebIdentity && c.Provider != Vending {
		return errs.Config("provider", "must be %q or %q, was %q", WebIdentity, Vending, c.Provider)
	}

	if c.ClientSecret == "" && c.ClientSecretFile != "" {
		secret, err := os.ReadFile(c.ClientSecretFile)
		if err != nil {
			return errs.Config("client-secret-file", "unreadable: %s", err.Error())
		}
		c.ClientSecret = strings.TrimSpace(string(secret))
	}

	missing := []string{}
	require := func(name, val string) {
		if val == "" {
			missing = append(missing, name)
		}
	}

	require("token-url", c.TokenURL)
	require("client-id", c.ClientID)
	require("client-secret", c.ClientSecret)
	require("region", c.Region)

	switch c.Provider {
	case WebIdentity:
		require("audience", c.Audience)
		require("role-arn", c.RoleARN)
	case Vending:
		require("exchange-url", c.ExchangeURL)
		if len(c.Scopes) == 0 {
			missing = append(missing, "scopes")
		}
	}

	if len(missing) > 0 {
		return errs.Config(strings.Join(missing, ", "), "required for provider type %q", c.Provider)
	}

	if c.RefreshMargin <= 0 {
		return errs.Config("refresh-margin", "must be positive, was %s", c.RefreshMargin)
	}
	if c.HTTPTimeout <= 0 {
		return errs.Config("http-timeout", "must be positive, was %s", c.HTTPTimeout)
	}
	if c.Provider == WebIdentity && c.SessionDuration < MinSessionDuration {
		return errs.Config("session-duration", "must be at least %s, was %s", MinSessionDuration, c.SessionDuration)
	}

	if c.SessionName == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		c.SessionName = fmt.Sprintf("oidc-creds-%s", host)
	}

	return nil
}

// TokenKey identifies the token cache entry for this configuration.
func (c *Config) TokenKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", c.Provider, c.TokenURL, c.ClientID, c.Audience, strings.Join(c.Scopes, " "))
}

// CredentialsKey identifies the credentials cache entry. The identity token
// is deliberately not part of the key: token and credential lifetimes are
// independent, so a token refresh must not invalidate cached credentials.
func (c *Config) CredentialsKey() string {
	switch c.Provider {
	case Vending:
		return fmt.Sprintf("%s|%s|%s", c.Provider, c.ExchangeURL, c.ClientID)
	default:
		return fmt.Sprintf("%s|%s|%s", c.Provider, c.RoleARN, c.ClientID)
	}
}
