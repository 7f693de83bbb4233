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
package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uswitch/oidc-creds/pkg/creds"
)

// ProcessJSON renders credentials in the shape the AWS SDK expects from a
// credential_process provider.
func ProcessJSON(c *creds.Credentials) ([]byte, error) {
	return json.Marshal(struct {
		Version         int    `json:"Version"`
		AccessKeyId     string `json:"AccessKeyId"`
		SecretAccessKey string `json:"SecretAccessKey"`
		SessionToken    string `json:"SessionToken"`
		Expiration      string `json:"Expiration"`
	}{
		Version:         1,
		AccessKeyId:     c.AccessKeyId,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
		Expiration:      c.Expiration.UTC().Format(time.RFC3339),
	})
}

// EnvFile renders credentials as shell exports suitable for sourcing.
func EnvFile(c *creds.Credentials, now time.Time) []byte {
	return []byte(fmt.Sprintf(`# AWS credentials - auto-refreshed by oidc-creds
# Generated: %s
# Expires: %s
export AWS_ACCESS_KEY_ID=%q
export AWS_SECRET_ACCESS_KEY=%q
export AWS_SESSION_TOKEN=%q
export AWS_REGION=%q
`,
		now.UTC().Format(time.RFC3339),
		c.Expiration.UTC().Format(time.RFC3339),
		c.AccessKeyId,
		c.SecretAccessKey,
		c.SessionToken,
		c.Region,
	))
}

// JSONFile renders credentials plus the storage scope they grant access to.
func JSONFile(c *creds.Credentials) ([]byte, error) {
	return json.MarshalIndent(struct {
		AccessKeyId     string `json:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key"`
		SessionToken    string `json:"session_token"`
		Expiration      string `json:"expiration"`
		Region          string `json:"region"`
		Bucket          string `json:"bucket,omitempty"`
		Prefix          string `json:"prefix,omitempty"`
	}{
		AccessKeyId:     c.AccessKeyId,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
		Expiration:      c.Expiration.UTC().Format(time.RFC3339),
		Region:          c.Region,
		Bucket:          c.Bucket,
		Prefix:          c.Prefix,
	}, "", "  ")
}

// INIFile renders an AWS shared-credentials file for consumers pointed at
// it with AWS_SHARED_CREDENTIALS_FILE.
func INIFile(c *creds.Credentials, now time.Time) []byte {
	return []byte(fmt.Sprintf(`# AWS credentials - auto-refreshed by oidc-creds
# Generated: %s
# Expires: %s
[default]
aws_access_key_id = %s
aws_secret_access_key = %s
aws_session_token = %s
region = %s
`,
		now.UTC().Format(time.RFC3339),
		c.Expiration.UTC().Format(time.RFC3339),
		c.AccessKeyId,
		c.SecretAccessKey,
		c.SessionToken,
		c.Region,
	))
}
