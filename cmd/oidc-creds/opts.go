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

	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/config"
	"github.com/uswitch/oidc-creds/pkg/pprof"
	"github.com/uswitch/oidc-creds/pkg/prometheus"
	"github.com/uswitch/oidc-creds/pkg/statsd"
)

type logOptions struct {
	jsonLog  bool
	logLevel string
}

func (o *logOptions) bind(parser parser) {
	parser.Flag("json-log", "Output log in JSON").BoolVar(&o.jsonLog)
	parser.Flag("level", "Log level: debug, info, warn, error.").Default("info").EnumVar(&o.logLevel, "debug", "info", "warn", "error")
}

func (o *logOptions) configureLogger() {
	if o.jsonLog {
		log.SetFormatter(&log.JSONFormatter{})
	}

	switch o.logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}
}

type telemetryOptions struct {
	prometheusListen string
	pprofListen      string
	statsD           string
	statsDInterval   time.Duration
}

func (o *telemetryOptions) bind(parser parser) {
	parser.Flag("prometheus-listen-addr", "Prometheus HTTP listen address. e.g. localhost:9620").StringVar(&o.prometheusListen)
	parser.Flag("pprof-listen-addr", "Address to bind pprof HTTP server. e.g. localhost:9990").Default("").StringVar(&o.pprofListen)
	parser.Flag("statsd", "UDP address to publish StatsD metrics. e.g. 127.0.0.1:8125").Default("").StringVar(&o.statsD)
	parser.Flag("statsd-interval", "Interval to publish to StatsD").Default("10s").DurationVar(&o.statsDInterval)
}

func (o telemetryOptions) start(ctx context.Context) {
	err := statsd.New(o.statsD, "oidc-creds", o.statsDInterval)
	if err != nil {
		log.Errorf("error configuring statsd: %s", err.Error())
	}

	if o.prometheusListen != "" {
		metrics := prometheus.NewServer(o.prometheusListen)
		metrics.Listen(ctx)
	}

	if o.pprofListen != "" {
		log.Infof("pprof listen address specified, will listen on %s", o.pprofListen)
		server := pprof.NewServer(o.pprofListen)
		go pprof.ListenAndWait(ctx, server)
	}
}

type configOptions struct {
	provider         string
	tokenURL         string
	clientID         string
	clientSecret     string
	clientSecretFile string
	audience         string
	scopes           []string
	roleARN          string
	sessionName      string
	sessionDuration  time.Duration
	exchangeURL      string
	region           string
	bucket           string
	prefix           string
	refreshMargin    time.Duration
	httpTimeout      time.Duration
}

func (o *configOptions) bind(parser parser) {
	parser.Flag("provider", "Identity provider type").Default(string(config.WebIdentity)).Envar("OIDC_PROVIDER").EnumVar(&o.provider, string(config.WebIdentity), string(config.Vending))
	parser.Flag("token-url", "OAuth token endpoint URL").Envar("OIDC_TOKEN_URL").StringVar(&o.tokenURL)
	parser.Flag("client-id", "OAuth client id").Envar("OIDC_CLIENT_ID").StringVar(&o.clientID)
	parser.Flag("client-secret", "OAuth client secret").Envar("OIDC_CLIENT_SECRET").StringVar(&o.clientSecret)
	parser.Flag("client-secret-file", "File holding the OAuth client secret").Envar("OIDC_CLIENT_SECRET_FILE").StringVar(&o.clientSecretFile)
	parser.Flag("audience", "Token audience. web-identity provider only.").Envar("OIDC_AUDIENCE").StringVar(&o.audience)
	parser.Flag("scope", "Token scope, repeatable. vending provider only.").Envar("OIDC_SCOPES").StringsVar(&o.scopes)
	parser.Flag("role-arn", "Role to assume with the identity token").Envar("AWS_ROLE_ARN").StringVar(&o.roleARN)
	parser.Flag("session-name", "Session name for the assumed role. Defaults to oidc-creds-<hostname>.").Envar("AWS_ROLE_SESSION_NAME").StringVar(&o.sessionName)
	parser.Flag("session-duration", "Requested lifetime for assumed role sessions").Default("1h").DurationVar(&o.sessionDuration)
	parser.Flag("exchange-url", "Credential vending endpoint URL. vending provider only.").Envar("OIDC_EXCHANGE_URL").StringVar(&o.exchangeURL)
	parser.Flag("region", "Storage region").Envar("AWS_REGION").StringVar(&o.region)
	parser.Flag("bucket", "Bucket the credentials are scoped to").Envar("OIDC_BUCKET").StringVar(&o.bucket)
	parser.Flag("prefix", "Key prefix the credentials are scoped to").Envar("OIDC_PREFIX").StringVar(&o.prefix)
	parser.Flag("refresh-margin", "Refresh cached values this long before they expire").Default("5m").DurationVar(&o.refreshMargin)
	parser.Flag("http-timeout", "Timeout for calls to the token and exchange endpoints").Default("10s").DurationVar(&o.httpTimeout)
}

func (o *configOptions) config() (*config.Config, error) {
	cfg := config.Default()
	cfg.Provider = config.ProviderType(o.provider)
	cfg.TokenURL = o.tokenURL
	cfg.ClientID = o.clientID
	cfg.ClientSecret = o.clientSecret
	cfg.ClientSecretFile = o.clientSecretFile
	cfg.Audience = o.audience
	cfg.Scopes = o.scopes
	cfg.RoleARN = o.roleARN
	cfg.SessionName = o.sessionName
	cfg.SessionDuration = o.sessionDuration
	cfg.ExchangeURL = o.exchangeURL
	cfg.Region = o.region
	cfg.Bucket = o.bucket
	cfg.Prefix = o.prefix
	cfg.RefreshMargin = o.refreshMargin
	cfg.HTTPTimeout = o.httpTimeout

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
