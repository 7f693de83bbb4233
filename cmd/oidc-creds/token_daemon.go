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
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/config"
	"github.com/uswitch/oidc-creds/pkg/creds"
	"github.com/uswitch/oidc-creds/pkg/errs"
	"github.com/uswitch/oidc-creds/pkg/loop"
	"github.com/uswitch/oidc-creds/pkg/sink"
)

type tokenDaemonCommand struct {
	logOptions
	telemetryOptions
	configOptions
	output   string
	interval time.Duration
}

func (o *tokenDaemonCommand) Bind(parser parser) {
	o.logOptions.bind(parser)
	o.telemetryOptions.bind(parser)
	o.configOptions.bind(parser)
	parser.Flag("output", "Path the identity token is written to").Default("/var/run/oidc/token").StringVar(&o.output)
	parser.Flag("interval", "How often to rewrite the token file").Default(loop.DefaultTokenInterval.String()).DurationVar(&o.interval)
}

func (opts *tokenDaemonCommand) Run() {
	opts.configureLogger()

	cfg, err := opts.config()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err.Error())
	}

	// A vending token is only usable through the vending exchange, so a
	// standalone token file would grant nothing. Refuse before any fetch.
	if cfg.Provider != config.WebIdentity {
		err := errs.Config("provider", "token daemon requires the %q provider, was %q", config.WebIdentity, cfg.Provider)
		log.Fatalf("invalid configuration: %s", err.Error())
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

	tokens := creds.NewTokenSource(cfg)
	l := loop.NewTokenLoop(tokens, sink.NewDir(filepath.Dir(opts.output)), filepath.Base(opts.output), opts.interval)
	l.Run(ctx)
}
