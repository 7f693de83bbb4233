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
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/creds"
	"github.com/uswitch/oidc-creds/pkg/loop"
	"github.com/uswitch/oidc-creds/pkg/sink"
)

type credentialDaemonCommand struct {
	logOptions
	telemetryOptions
	configOptions
	directory string
	interval  time.Duration
}

func (o *credentialDaemonCommand) Bind(parser parser) {
	o.logOptions.bind(parser)
	o.telemetryOptions.bind(parser)
	o.configOptions.bind(parser)
	parser.Flag("output-dir", "Directory the credential files are written into").Default("/var/run/aws-creds").StringVar(&o.directory)
	parser.Flag("interval", "How often to rewrite the credential files").Default(loop.DefaultCredentialInterval.String()).DurationVar(&o.interval)
}

func (opts *credentialDaemonCommand) Run() {
	opts.configureLogger()

	cfg, err := opts.config()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err.Error())
	}

	provider, err := creds.NewProvider(cfg)
	if err != nil {
		log.Fatalf("error building provider: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	signal.Notify(stopChan, syscall.SIGTERM)
	go func() {
		<-stopChan
		log.Infoln("terminating...")
		cancel()
	}()

	opts.telemetryOptions.start(ctx)

	l := loop.NewCredentialLoop(provider, sink.NewDir(opts.directory), opts.interval)
	l.Run(ctx)
}
