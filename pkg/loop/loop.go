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

// Package loop runs the periodic artifact writers. Each loop writes once at
// startup and then again on every interval tick or refresh-ahead signal,
// whichever comes first. A failed cycle is logged and skipped: the previous
// artifacts stay in place until a cycle succeeds.
package loop

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/creds"
	"github.com/uswitch/oidc-creds/pkg/errs"
	"github.com/uswitch/oidc-creds/pkg/oidc"
	"github.com/uswitch/oidc-creds/pkg/sink"
	"github.com/uswitch/oidc-creds/pkg/statsd"
)

const (
	// DefaultCredentialInterval refreshes credential artifacts every 45
	// minutes, well inside the default hour-long session.
	DefaultCredentialInterval = 45 * time.Minute

	// DefaultTokenInterval refreshes the token file hourly.
	DefaultTokenInterval = time.Hour
)

// TokenSource yields tokens and announces when a cached one nears expiry.
type TokenSource interface {
	Fetch(ctx context.Context) (*oidc.Token, error)
	Expiring() chan *oidc.Token
}

// CredentialLoop keeps the credential artifacts in the sink fresh: shell
// exports, the JSON document and an AWS shared-credentials file.
type CredentialLoop struct {
	cache    creds.CredentialsCache
	sink     sink.Writer
	interval time.Duration
	now      func() time.Time
}

func NewCredentialLoop(cache creds.CredentialsCache, writer sink.Writer, interval time.Duration) *CredentialLoop {
	return &CredentialLoop{
		cache:    cache,
		sink:     writer,
		interval: interval,
		now:      time.Now,
	}
}

func (l *CredentialLoop) Run(ctx context.Context) {
	log.WithField("interval", l.interval.String()).Infof("starting credential loop")
	l.cycle(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infof("stopping credential loop")
			return
		case <-ticker.C:
			l.cycle(ctx)
		case credentials := <-l.cache.Expiring():
			log.WithFields(credentials.LogFields()).Infof("credentials expire soon, refreshing artifacts")
			l.cycle(ctx)
		}
	}
}

func (l *CredentialLoop) cycle(ctx context.Context) {
	timing := statsd.Client.NewTiming()

	credentials, err := l.cache.Credentials(ctx)
	if err != nil {
		cycleErrors.WithLabelValues("credentials", errs.Kind(err)).Inc()
		log.Errorf("error refreshing credentials: %s", err.Error())
		return
	}

	if err := l.write(credentials); err != nil {
		cycleErrors.WithLabelValues("credentials", "sink").Inc()
		log.Errorf("error writing credential artifacts: %s", err.Error())
		return
	}

	timing.Send("loop.credentials")
	writes.WithLabelValues("credentials").Inc()
	log.WithFields(credentials.LogFields()).Infof("wrote credential artifacts")
}

func (l *CredentialLoop) write(credentials *creds.Credentials) error {
	now := l.now()

	if err := l.sink.Write(sink.EnvFileName, sink.EnvFile(credentials, now)); err != nil {
		return err
	}

	document, err := sink.JSONFile(credentials)
	if err != nil {
		return err
	}
	if err := l.sink.Write(sink.JSONFileName, document); err != nil {
		return err
	}

	return l.sink.Write(sink.INIFileName, sink.INIFile(credentials, now))
}

// TokenLoop keeps a raw identity token on disk for consumers pointed at it
// with AWS_WEB_IDENTITY_TOKEN_FILE.
type TokenLoop struct {
	tokens   TokenSource
	sink     sink.Writer
	name     string
	interval time.Duration
}

func NewTokenLoop(tokens TokenSource, writer sink.Writer, name string, interval time.Duration) *TokenLoop {
	return &TokenLoop{
		tokens:   tokens,
		sink:     writer,
		name:     name,
		interval: interval,
	}
}

func (l *TokenLoop) Run(ctx context.Context) {
	log.WithField("interval", l.interval.String()).Infof("starting token loop")
	l.cycle(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infof("stopping token loop")
			return
		case <-ticker.C:
			l.cycle(ctx)
		case token := <-l.tokens.Expiring():
			log.WithFields(token.LogFields()).Infof("token expires soon, refreshing file")
			l.cycle(ctx)
		}
	}
}

func (l *TokenLoop) cycle(ctx context.Context) {
	timing := statsd.Client.NewTiming()

	token, err := l.tokens.Fetch(ctx)
	if err != nil {
		cycleErrors.WithLabelValues("token", errs.Kind(err)).Inc()
		log.Errorf("error refreshing token: %s", err.Error())
		return
	}

	if err := l.sink.Write(l.name, []byte(token.Raw)); err != nil {
		cycleErrors.WithLabelValues("token", "sink").Inc()
		log.Errorf("error writing token file: %s", err.Error())
		return
	}

	timing.Send("loop.token")
	writes.WithLabelValues("token").Inc()
	log.WithFields(token.LogFields()).Infof("wrote token file")
}
