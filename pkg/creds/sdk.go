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
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
)

// SDKProviderName labels credentials issued through SDKProvider.
const SDKProviderName = "oidc-creds"

// SDKProvider adapts a CredentialsProvider to the aws-sdk-go credentials
// interface so issued credentials can back an SDK client directly.
type SDKProvider struct {
	credentials.Expiry
	provider CredentialsProvider
	margin   time.Duration
}

func NewSDKProvider(provider CredentialsProvider, margin time.Duration) *SDKProvider {
	return &SDKProvider{provider: provider, margin: margin}
}

// Retrieve implements credentials.Provider. The SDK gives us no context, so
// the exchange runs under the provider's own timeouts.
func (p *SDKProvider) Retrieve() (credentials.Value, error) {
	creds, err := p.provider.Credentials(context.Background())
	if err != nil {
		return credentials.Value{ProviderName: SDKProviderName}, err
	}

	p.SetExpiration(creds.Expiration, p.margin)
	return credentials.Value{
		AccessKeyID:     creds.AccessKeyId,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		ProviderName:    SDKProviderName,
	}, nil
}
