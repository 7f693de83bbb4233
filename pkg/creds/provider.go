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
package creds

import (
	"net/http"

	"github.com/uswitch/oidc-creds/pkg/config"
	"github.com/uswitch/oidc-creds/pkg/oidc"
)

// NewTokenSource returns the cached token fetcher for the configuration.
func NewTokenSource(cfg *config.Config) *oidc.TokenCache {
	return oidc.NewTokenCache(oidc.NewFetcher(cfg), cfg.TokenKey(), cfg.RefreshMargin)
}

// NewExchanger returns the exchanger for the configured provider type.
func NewExchanger(cfg *config.Config) (Exchanger, error) {
	switch cfg.Provider {
	case config.Vending:
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		return NewVendingExchanger(client, cfg.ExchangeURL, cfg.Bucket, cfg.Prefix, cfg.Region), nil
	default:
		return NewFederationExchanger(cfg)
	}
}

// NewProvider wires the exchanger behind a refresh-ahead cache fed by its
// own token cache. This is the assembly every command uses.
func NewProvider(cfg *config.Config) (*Cache, error) {
	exchanger, err := NewExchanger(cfg)
	if err != nil {
		return nil, err
	}
	return NewCache(exchanger, NewTokenSource(cfg), cfg.CredentialsKey(), cfg.RefreshMargin), nil
}
