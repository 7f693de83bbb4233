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
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/creds"
	"github.com/uswitch/oidc-creds/pkg/errs"
)

const retryInterval = time.Millisecond * 50

type credentialsHandler struct {
	provider       creds.CredentialsProvider
	authToken      string
	maxElapsedTime time.Duration
}

func newCredentialsHandler(provider creds.CredentialsProvider, authToken string, maxElapsedTime time.Duration) *credentialsHandler {
	return &credentialsHandler{provider: provider, authToken: authToken, maxElapsedTime: maxElapsedTime}
}

func InstallAsCredentialsHandler(h handler, router *mux.Router) {
	router.Handle("/credentials", adapt(withMeter("credentials", h)))
}

// containerCredentials is the response document read by SDK clients. The
// field names follow the container credentials endpoint, not our own.
type containerCredentials struct {
	AccessKeyId     string
	SecretAccessKey string
	Token           string
	Expiration      string
}

func (h *credentialsHandler) Handle(ctx context.Context, w http.ResponseWriter, req *http.Request) (int, error) {
	timer := prometheus.NewTimer(handlerTimer.WithLabelValues("credentials"))
	defer timer.ObserveDuration()

	if h.authToken != "" {
		presented := req.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(h.authToken)) != 1 {
			return http.StatusUnauthorized, fmt.Errorf("invalid authorization token")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.maxElapsedTime)
	defer cancel()

	credentials, err := fetchCredentials(ctx, h.provider)
	if err != nil {
		credentialErrors.WithLabelValues("credentials", errs.Kind(err)).Inc()
		if errs.IsAuth(err) {
			return http.StatusForbidden, fmt.Errorf("exchange rejected: %s", err.Error())
		}
		return http.StatusInternalServerError, fmt.Errorf("error fetching credentials: %s", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(containerCredentials{
		AccessKeyId:     credentials.AccessKeyId,
		SecretAccessKey: credentials.SecretAccessKey,
		Token:           credentials.SessionToken,
		Expiration:      credentials.Expiration.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return http.StatusInternalServerError, fmt.Errorf("error encoding credentials: %s", err.Error())
	}

	return http.StatusOK, nil
}

// fetchCredentials retries transient failures until the context expires.
// Rejections and configuration errors are returned immediately, a new
// attempt can't change the answer.
func fetchCredentials(ctx context.Context, provider creds.CredentialsProvider) (*creds.Credentials, error) {
	credsCh := make(chan *creds.Credentials, 1)
	op := func() error {
		credentials, err := provider.Credentials(ctx)
		if err != nil {
			if errs.IsAuth(err) || errs.IsConfig(err) {
				return backoff.Permanent(err)
			}
			log.Warnf("error fetching credentials, will retry: %s", err.Error())
			return err
		}
		credsCh <- credentials
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = retryInterval

	err := backoff.Retry(op, backoff.WithContext(strategy, ctx))
	if err != nil {
		return nil, err
	}

	return <-credsCh, nil
}
