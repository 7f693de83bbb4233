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
	"github.com/uswitch/oidc-creds/pkg/server"
)

type serveCommand struct {
	logOptions
	telemetryOptions
	configOptions
	port           int
	authToken      string
	maxElapsedTime time.Duration
}

func (o *serveCommand) Bind(parser parser) {
	o.logOptions.bind(parser)
	o.telemetryOptions.bind(parser)
	o.configOptions.bind(parser)
	parser.Flag("port", "HTTP port").Default("9111").IntVar(&o.port)
	parser.Flag("auth-token", "Value clients must present in the Authorization header. Empty disables the check.").Envar("OIDC_CREDS_AUTH_TOKEN").StringVar(&o.authToken)
	parser.Flag("max-elapsed-time", "Longest a request may wait for credentials, retries included").Default("10s").DurationVar(&o.maxElapsedTime)
}

func (opts *serveCommand) Run() {
	opts.configureLogger()

	cfg, err := opts.config()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err.Error())
	}

	provider, err := creds.NewProvider(cfg)
	if err != nil {
		log.Fatalf("error building provider: %s", err.Error())
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	signal.Notify(stopChan, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts.telemetryOptions.start(ctx)

	serverConfig := server.NewConfig(opts.port)
	serverConfig.AuthToken = opts.authToken
	serverConfig.MaxElapsedTime = opts.maxElapsedTime

	webServer := server.NewWebServer(serverConfig, provider)
	go webServer.Serve()
	defer webServer.Stop(ctx)

	<-stopChan
	log.Infoln("terminating...")
}
