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

package oidc

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/jwt"
	log "github.com/sirupsen/logrus"
)

// Claims is an advisory view of a token's payload. The signature is not
// verified: values are shown to operators for diagnosis, never trusted for
// decisions. Verification belongs to the exchange endpoint.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	Scope     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseClaims decodes the payload of a JWT without verifying it. Opaque
// tokens fail to parse, which callers should report rather than treat as an
// error in the token itself.
func ParseClaims(raw string) (*Claims, error) {
	parsed, err := jwt.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing token claims: %w", err)
	}

	claims := &Claims{
		Issuer:    parsed.Issuer(),
		Subject:   parsed.Subject(),
		Audience:  parsed.Audience(),
		IssuedAt:  parsed.IssuedAt(),
		ExpiresAt: parsed.Expiration(),
	}
	if scope, ok := parsed.Get("scope"); ok {
		if s, ok := scope.(string); ok {
			claims.Scope = s
		}
	}
	return claims, nil
}

func (c *Claims) LogFields() log.Fields {
	return log.Fields{
		"claims.issuer":   c.Issuer,
		"claims.subject":  c.Subject,
		"claims.audience": strings.Join(c.Audience, " "),
		"claims.scope":    c.Scope,
		"claims.expiry":   c.ExpiresAt.Format(time.RFC3339),
	}
}
