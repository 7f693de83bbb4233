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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/uswitch/oidc-creds/pkg/config"
	"github.com/uswitch/oidc-creds/pkg/errs"
)

// TokenFetcher obtains a fresh identity token from the token endpoint.
// Implementations must be safe for concurrent use.
type TokenFetcher interface {
	Fetch(ctx context.Context) (*Token, error)
}

const fetchOp = "token endpoint"

// maxResponseBody caps how much of a response is read when looking for a
// token or an error message.
const maxResponseBody = 1 << 20

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// NewFetcher builds the fetcher matching the configured provider type. The
// grant shape follows the exchange mechanism: the federation endpoint wants
// an audience claim in the token, vending endpoints want resource scopes.
func NewFetcher(cfg *config.Config) TokenFetcher {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	switch cfg.Provider {
	case config.Vending:
		return NewVendingFetcher(client, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes)
	default:
		return NewWebIdentityFetcher(client, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Audience)
	}
}

type webIdentityFetcher struct {
	client   *http.Client
	url      string
	clientID string
	secret   string
	audience string
	now      func() time.Time
}

// NewWebIdentityFetcher requests tokens with the client credentials and the
// audience sent as a JSON grant body.
func NewWebIdentityFetcher(client *http.Client, tokenURL, clientID, clientSecret, audience string) TokenFetcher {
	return &webIdentityFetcher{
		client:   client,
		url:      tokenURL,
		clientID: clientID,
		secret:   clientSecret,
		audience: audience,
		now:      time.Now,
	}
}

func (f *webIdentityFetcher) Fetch(ctx context.Context) (*Token, error) {
	grant := struct {
		GrantType    string `json:"grant_type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		Audience     string `json:"audience"`
	}{"client_credentials", f.clientID, f.secret, f.audience}

	body, err := json.Marshal(&grant)
	if err != nil {
		return nil, errs.Transport(fetchOp, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Transport(fetchOp, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return fetchToken(f.client, req, f.now)
}

type vendingFetcher struct {
	client   *http.Client
	url      string
	clientID string
	secret   string
	scopes   []string
	now      func() time.Time
}

// NewVendingFetcher requests tokens with HTTP basic client authentication
// and a form-encoded grant. The scopes are joined with spaces the way the
// endpoint expects them.
func NewVendingFetcher(client *http.Client, tokenURL, clientID, clientSecret string, scopes []string) TokenFetcher {
	return &vendingFetcher{
		client:   client,
		url:      tokenURL,
		clientID: clientID,
		secret:   clientSecret,
		scopes:   scopes,
		now:      time.Now,
	}
}

func (f *vendingFetcher) Fetch(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", strings.Join(f.scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Transport(fetchOp, err)
	}
	req.SetBasicAuth(f.clientID, f.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return fetchToken(f.client, req, f.now)
}

// fetchToken performs the grant request and maps every way it can go wrong
// onto the shared error kinds. A 200 with an unparseable body counts as a
// transport failure, not a rejection.
func fetchToken(client *http.Client, req *http.Request, now func() time.Time) (*Token, error) {
	fetchExecuting.Inc()
	defer fetchExecuting.Dec()
	started := time.Now()

	issuedAt := now()
	resp, err := client.Do(req)
	fetchTiming.Observe(time.Since(started).Seconds())
	if err != nil {
		errorFetching.Inc()
		return nil, errs.Transport(fetchOp, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		errorFetching.Inc()
		return nil, errs.Transport(fetchOp, err)
	}

	if resp.StatusCode != http.StatusOK {
		errorFetching.Inc()
		return nil, errs.FromResponse(fetchOp, resp.StatusCode, payload)
	}

	var tr tokenResponse
	if err := json.Unmarshal(payload, &tr); err != nil {
		errorFetching.Inc()
		return nil, errs.Transportf(fetchOp, "malformed token response: %s", err.Error())
	}
	if tr.AccessToken == "" {
		errorFetching.Inc()
		return nil, errs.Transportf(fetchOp, "token response missing access_token")
	}

	token := NewToken(tr.AccessToken, issuedAt, tr.ExpiresIn)
	token.Scopes = strings.Fields(tr.Scope)
	return token, nil
}
