package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/gorilla/mux"

	"github.com/uswitch/oidc-creds/pkg/errs"
	"github.com/uswitch/oidc-creds/pkg/testutil"
)

func TestHealthIgnoresProvider(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	provider := testutil.NewStubProvider().WithCredentials(testutil.CredentialsResult{Error: errs.Transportf("token endpoint", "unreachable")})
	router := mux.NewRouter()
	InstallAsHealthHandler(newHealthHandler(provider, time.Second*5), router)

	router.ServeHTTP(rr, r.WithContext(ctx))

	if rr.Code != http.StatusOK {
		t.Error("unexpected status", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Error("unexpected body", rr.Body.String())
	}
	if provider.Calls() != 0 {
		t.Error("shallow health should not fetch credentials, calls:", provider.Calls())
	}
}

func TestDeepHealthFetchesCredentials(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("GET", "/health?deep=1", nil)
	rr := httptest.NewRecorder()

	valid := testutil.CredentialsResult{Credentials: testCredentials()}
	provider := testutil.NewStubProvider().WithCredentials(valid, valid)
	router := mux.NewRouter()
	InstallAsHealthHandler(newHealthHandler(provider, time.Second*5), router)

	router.ServeHTTP(rr, r.WithContext(ctx))

	if rr.Code != http.StatusOK {
		t.Error("unexpected status", rr.Code)
	}
	if provider.Calls() != 1 {
		t.Error("expected one credentials fetch, calls:", provider.Calls())
	}
}

func TestDeepHealthReportsRejection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	defer leaktest.Check(t)()

	r, _ := http.NewRequest("GET", "/health?deep=1", nil)
	rr := httptest.NewRecorder()

	provider := testutil.NewStubProvider().WithCredentials(testutil.CredentialsResult{Error: errs.Auth("federation endpoint", 403, "AccessDenied")})
	router := mux.NewRouter()
	InstallAsHealthHandler(newHealthHandler(provider, time.Second*5), router)

	router.ServeHTTP(rr, r.WithContext(ctx))

	if rr.Code != http.StatusInternalServerError {
		t.Error("unexpected status", rr.Code)
	}
}
