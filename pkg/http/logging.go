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
package http

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// RequestFields records the parts of a request worth logging. Query strings
// are deliberately left out: they never carry anything we need and could
// carry things we must not log.
func RequestFields(req *http.Request) log.Fields {
	return log.Fields{
		"req.method": req.Method,
		"req.path":   req.URL.Path,
		"req.remote": req.RemoteAddr,
	}
}

type loggingHandler struct {
	handler http.Handler
}

// LoggingHandler wraps a handler to log each request once served, with the
// response status and how long serving took.
func LoggingHandler(h http.Handler) http.Handler {
	return &loggingHandler{handler: h}
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h.handler.ServeHTTP(recorder, req)

	log.WithFields(RequestFields(req)).WithFields(log.Fields{
		"res.status":   recorder.status,
		"res.duration": time.Since(started).String(),
	}).Infof("processed request")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
