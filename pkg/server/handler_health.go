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
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/uswitch/oidc-creds/pkg/creds"
)

type healthHandler struct {
	provider       creds.CredentialsProvider
	maxElapsedTime time.Duration
}

func newHealthHandler(provider creds.CredentialsProvider, maxElapsedTime time.Duration) *healthHandler {
	return &healthHandler{provider: provider, maxElapsedTime: maxElapsedTime}
}

func InstallAsHealthHandler(h handler, router *mux.Router) {
	router.Handle("/health", adapt(withMeter("health", h)))
}

// Handle reports ok without touching any collaborator. With ?deep it also
// proves that credentials can be served, going out to the provider on a
// cold cache.
func (h *healthHandler) Handle(ctx context.Context, w http.ResponseWriter, req *http.Request) (int, error) {
	timer := prometheus.NewTimer(handlerTimer.WithLabelValues("health"))
	defer timer.ObserveDuration()

	deep := req.URL.Query().Get("deep")
	if deep != "" {
		ctx, cancel := context.WithTimeout(ctx, h.maxElapsedTime)
		defer cancel()

		_, err := fetchCredentials(ctx, h.provider)
		if err != nil {
			return http.StatusInternalServerError, fmt.Errorf("credentials unavailable: %s", err.Error())
		}
	}

	fmt.Fprint(w, "ok")
	return http.StatusOK, nil
}
