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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/uswitch/oidc-creds/pkg/errs"
)

const vendingOp = "credentials api"

const maxResponseBody = 1 << 20

// VendingExchanger posts the identity token to a vending API that validates
// its claims and assumes the role server-side. The response carries the
// credentials plus the storage they are scoped to.
type VendingExchanger struct {
	client *http.Client
	url    string

	bucket string
	prefix string
	region string
}

// NewVendingExchanger exchanges tokens at exchangeURL. bucket, prefix and
// region are fallbacks for responses that omit the storage metadata.
func NewVendingExchanger(client *http.Client, exchangeURL, bucket, prefix, region string) *VendingExchanger {
	return &VendingExchanger{
		client: client,
		url:    exchangeURL,
		bucket: bucket,
		prefix: prefix,
		region: region,
	}
}

type vendingResponse struct {
	Credentials struct {
		AccessKeyId     string `json:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key"`
		SessionToken    string `json:"session_token"`
		Expiration      string `json:"expiration"`
	} `json:"credentials"`
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Region string `json:"region"`
	Error  string `json:"error"`
}

func (e *VendingExchanger) Exchange(ctx context.Context, token string) (*Credentials, error) {
	exchangeExecuting.Inc()
	defer exchangeExecuting.Dec()
	started := time.Now()

	body, err := json.Marshal(struct {
		AccessToken string `json:"access_token"`
	}{token})
	if err != nil {
		return nil, errs.Transport(vendingOp, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Transport(vendingOp, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	exchangeTiming.Observe(time.Since(started).Seconds())
	if err != nil {
		errorExchanging.Inc()
		return nil, errs.Transport(vendingOp, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		errorExchanging.Inc()
		return nil, errs.Transport(vendingOp, err)
	}

	if resp.StatusCode != http.StatusOK {
		errorExchanging.Inc()
		return nil, errs.FromResponse(vendingOp, resp.StatusCode, payload)
	}

	var vr vendingResponse
	if err := json.Unmarshal(payload, &vr); err != nil {
		errorExchanging.Inc()
		return nil, errs.Transportf(vendingOp, "malformed response: %s", err.Error())
	}
	if vr.Error != "" {
		errorExchanging.Inc()
		return nil, errs.Auth(vendingOp, resp.StatusCode, vr.Error)
	}
	if vr.Credentials.AccessKeyId == "" || vr.Credentials.SecretAccessKey == "" {
		errorExchanging.Inc()
		return nil, errs.Transportf(vendingOp, "response missing credentials")
	}

	expiration, err := time.Parse(time.RFC3339, vr.Credentials.Expiration)
	if err != nil {
		errorExchanging.Inc()
		return nil, errs.Transportf(vendingOp, "malformed expiration %q: %s", vr.Credentials.Expiration, err.Error())
	}

	credentials := &Credentials{
		AccessKeyId:     vr.Credentials.AccessKeyId,
		SecretAccessKey: vr.Credentials.SecretAccessKey,
		SessionToken:    vr.Credentials.SessionToken,
		Expiration:      expiration,
		Bucket:          vr.Bucket,
		Prefix:          vr.Prefix,
		Region:          vr.Region,
	}
	if credentials.Bucket == "" {
		credentials.Bucket = e.bucket
	}
	if credentials.Prefix == "" {
		credentials.Prefix = e.prefix
	}
	if credentials.Region == "" {
		credentials.Region = e.region
	}
	return credentials, nil
}
