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

// Package creds exchanges identity tokens for temporary storage credentials,
// either directly with the federation endpoint or through a vending API, and
// caches them until shortly before expiry.
package creds

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type Credentials struct {
	AccessKeyId     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time

	// Storage the credentials grant access to. Populated from the vending
	// response when it carries them, otherwise from configuration.
	Bucket string
	Prefix string
	Region string
}

// FreshAt reports whether the credentials are still usable at the given
// instant, i.e. more than margin away from expiry.
func (c *Credentials) FreshAt(now time.Time, margin time.Duration) bool {
	return now.Add(margin).Before(c.Expiration)
}

func (c *Credentials) LogFields() log.Fields {
	return log.Fields{
		"credentials.accessKeyId": c.AccessKeyId,
		"credentials.expiration":  c.Expiration.Format(time.RFC3339),
		"credentials.bucket":      c.Bucket,
	}
}
