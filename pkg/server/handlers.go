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
	"net/http"

	log "github.com/sirupsen/logrus"

	khttp "github.com/uswitch/oidc-creds/pkg/http"
)

// interface for request handlers
type handler interface {
	Handle(ctx context.Context, w http.ResponseWriter, req *http.Request) (int, error)
}

// adapts between handler and http.Handler
type handlerAdapter struct {
	h handler
}

func (a *handlerAdapter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	status, err := a.h.Handle(req.Context(), w, req)

	if err != nil {
		log.WithFields(khttp.RequestFields(req)).WithField("status", status).Errorf("error processing request: %s", err.Error())
		http.Error(w, err.Error(), status)
	}
}

func adapt(h handler) *handlerAdapter {
	return &handlerAdapter{h: h}
}

// counts response status buckets for a handler
type metricHandler struct {
	name string
	h    handler
}

func withMeter(name string, h handler) handler {
	return &metricHandler{
		name: name,
		h:    h,
	}
}

func (m *metricHandler) Handle(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, error) {
	status, err := m.h.Handle(ctx, w, r)
	responses.WithLabelValues(m.name, statusBucket(status)).Inc()
	return status, err
}

func statusBucket(status int) string {
	if status >= 200 && status < 300 {
		return "2xx"
	}
	if status >= 300 && status < 400 {
		return "3xx"
	}
	if status >= 400 && status < 500 {
		return "4xx"
	}
	if status >= 500 && status < 600 {
		return "5xx"
	}
	return "unknown"
}
