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

// Package oidc obtains identity tokens from an OAuth2 token endpoint with
// the client-credentials grant and caches them until shortly before expiry.
package oidc

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultLifetime is assumed when the token endpoint omits expires_in.
const DefaultLifetime = 24 * time.Hour

type Token struct {
	Raw       string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Scopes the endpoint declared as granted, in the order it listed them.
	// Empty when the response carried none.
	Scopes []string
}

// NewToken records when a token was issued and when it expires. expiresIn
// is the endpoint's expires_in in seconds; zero or negative values fall
// back to DefaultLifetime.
func NewToken(raw string, issuedAt time.Time, expiresIn int64) *Token {
	lifetime := time.Duration(expiresIn) * time.Second
	if expiresIn <= 0 {
		lifetime = DefaultLifetime
	}
	return &Token{
		Raw:       raw,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(lifetime),
	}
}

// FreshAt reports whether the token is still usable at the given instant,
// i.e. more than margin away from expiry.
func (t *Token) FreshAt(now time.Time, margin time.Duration) bool {
	return now.Add(margin).Before(t.ExpiresAt)
}

func (t *Token) LogFields() log.Fields {
	return log.Fields{
		"token.issuedAt": t.IssuedAt.Format(time.RFC3339),
		"token.expiry":   t.ExpiresAt.Format(time.RFC3339),
		"token.scope":    strings.Join(t.Scopes, " "),
	}
}
