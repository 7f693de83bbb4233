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
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/creds"
	"github.com/uswitch/oidc-creds/pkg/sink"
)

// credentialsCommand fetches credentials once and prints them to stdout in
// the credential_process shape. Logs go to stderr so the output stays
// machine-readable.
type credentialsCommand struct {
	logOptions
	configOptions
	timeout time.Duration
}

func (o *credentialsCommand) Bind(parser parser) {
	o.logOptions.bind(parser)
	o.configOptions.bind(parser)
	parser.Flag("timeout", "Time allowed for the token fetch and exchange").Default("30s").DurationVar(&o.timeout)
}

func (opts *credentialsCommand) Run() {
	opts.configureLogger()

	cfg, err := opts.config()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err.Error())
	}

	provider, err := creds.NewProvider(cfg)
	if err != nil {
		log.Fatalf("error building provider: %s", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	credentials, err := provider.Credentials(ctx)
	if err != nil {
		log.Fatalf("error fetching credentials: %s", err.Error())
	}

	out, err := sink.ProcessJSON(credentials)
	if err != nil {
		log.Fatalf("error encoding credentials: %s", err.Error())
	}

	fmt.Println(string(out))
}
