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
package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/creds"
	"github.com/uswitch/oidc-creds/pkg/errs"
	"github.com/uswitch/oidc-creds/pkg/oidc"
)

// checkCommand walks the exchange chain one step at a time so an operator
// can see which hop a broken configuration fails on.
type checkCommand struct {
	logOptions
	configOptions
	timeout     time.Duration
	credentials bool
}

func (o *checkCommand) Bind(parser parser) {
	o.logOptions.bind(parser)
	o.configOptions.bind(parser)
	parser.Flag("timeout", "Timeout for the check").Default("10s").DurationVar(&o.timeout)
	parser.Flag("credentials", "Also exchange the token for storage credentials").BoolVar(&o.credentials)
}

func (opts *checkCommand) Run() {
	opts.configureLogger()

	cfg, err := opts.config()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	fetcher := oidc.NewFetcher(cfg)

	var token *oidc.Token
	op := func() error {
		var ferr error
		token, ferr = fetcher.Fetch(ctx)
		if ferr != nil {
			if errs.IsAuth(ferr) {
				return backoff.Permanent(ferr)
			}
			log.Warnf("error fetching token, will retry: %s", ferr.Error())
			return ferr
		}
		return nil
	}
	err = backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(100*time.Millisecond), ctx))
	if err != nil {
		log.Fatalf("error fetching identity token: %s", err.Error())
	}

	log.WithFields(token.LogFields()).Infof("fetched identity token")

	claims, err := oidc.ParseClaims(token.Raw)
	if err != nil {
		log.Infof("token is opaque, claims are not inspectable: %s", err.Error())
	} else {
		log.WithFields(claims.LogFields()).Infof("token claims, unverified")
	}

	if opts.credentials {
		exchanger, err := creds.NewExchanger(cfg)
		if err != nil {
			log.Fatalf("error building exchanger: %s", err.Error())
		}

		credentials, err := exchanger.Exchange(ctx, token.Raw)
		if err != nil {
			log.Fatalf("error exchanging token: %s", err.Error())
		}

		log.WithFields(credentials.LogFields()).Infof("exchanged token for storage credentials")
	}
}
