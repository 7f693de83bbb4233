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
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/creds"
	khttp "github.com/uswitch/oidc-creds/pkg/http"
)

// Config holds the settings for the local credentials endpoint.
type Config struct {
	ListenPort     int
	AuthToken      string
	MaxElapsedTime time.Duration
}

func NewConfig(port int) *Config {
	return &Config{
		ListenPort:     port,
		MaxElapsedTime: time.Second * 10,
	}
}

// Server exposes the cached credentials over local HTTP in the shape
// expected by SDK clients configured with AWS_CONTAINER_CREDENTIALS_FULL_URI.
type Server struct {
	cfg         *Config
	credentials creds.CredentialsProvider
	mutex       sync.Mutex
	server      *http.Server
}

func NewWebServer(config *Config, credentials creds.CredentialsProvider) *Server {
	return &Server{cfg: config, credentials: credentials}
}

func (s *Server) listenAddress() string {
	return fmt.Sprintf(":%d", s.cfg.ListenPort)
}

func (s *Server) Serve() error {
	router := mux.NewRouter()
	router.Handle("/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "pong") }))

	InstallAsCredentialsHandler(newCredentialsHandler(s.credentials, s.cfg.AuthToken, s.cfg.MaxElapsedTime), router)
	InstallAsHealthHandler(newHealthHandler(s.credentials, s.cfg.MaxElapsedTime), router)

	s.mutex.Lock()
	s.server = &http.Server{Addr: s.listenAddress(), Handler: khttp.LoggingHandler(router)}
	s.mutex.Unlock()

	log.Infof("listening %s", s.listenAddress())

	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.server == nil {
		return
	}

	log.Infoln("starting server shutdown")
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.server.Shutdown(c)
	log.Infoln("gracefully shutdown server")
}
