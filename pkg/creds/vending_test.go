package creds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswitch/oidc-creds/pkg/errs"
)

func vendingAt(url string) *VendingExchanger {
	return NewVendingExchanger(&http.Client{Timeout: time.Second}, url, "fallback-bucket", "fallback/", "eu-west-1")
}

func TestExchangePostsAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-123", body["access_token"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]string{
				"access_key_id":     "AKIATEST",
				"secret_access_key": "secret",
				"session_token":     "session",
				"expiration":        "2022-05-10T13:00:00Z",
			},
			"bucket": "vended-bucket",
			"prefix": "tenant-42/",
			"region": "us-east-1",
		})
	}))
	defer server.Close()

	credentials, err := vendingAt(server.URL).Exchange(context.Background(), "tok-123")

	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", credentials.AccessKeyId)
	assert.Equal(t, "secret", credentials.SecretAccessKey)
	assert.Equal(t, "session", credentials.SessionToken)
	assert.Equal(t, time.Date(2022, 5, 10, 13, 0, 0, 0, time.UTC), credentials.Expiration)
	assert.Equal(t, "vended-bucket", credentials.Bucket)
	assert.Equal(t, "tenant-42/", credentials.Prefix)
	assert.Equal(t, "us-east-1", credentials.Region)
}

func TestStorageMetadataFallsBackToConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]string{
				"access_key_id":     "AKIATEST",
				"secret_access_key": "secret",
				"session_token":     "session",
				"expiration":        "2022-05-10T13:00:00Z",
			},
		})
	}))
	defer server.Close()

	credentials, err := vendingAt(server.URL).Exchange(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "fallback-bucket", credentials.Bucket)
	assert.Equal(t, "fallback/", credentials.Prefix)
	assert.Equal(t, "eu-west-1", credentials.Region)
}

func TestRejectionCarriesAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "Client not authorized"})
	}))
	defer server.Close()

	_, err := vendingAt(server.URL).Exchange(context.Background(), "tok")

	require.True(t, errs.IsAuth(err), "expected auth error, was: %v", err)
	assert.Contains(t, err.Error(), "Client not authorized")
	assert.Contains(t, err.Error(), "403")
}

func TestErrorFieldInOKResponseIsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "subject not permitted"})
	}))
	defer server.Close()

	_, err := vendingAt(server.URL).Exchange(context.Background(), "tok")

	require.True(t, errs.IsAuth(err), "expected auth error, was: %v", err)
	assert.Contains(t, err.Error(), "subject not permitted")
}

func TestServerFailureIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := vendingAt(server.URL).Exchange(context.Background(), "tok")

	assert.True(t, errs.IsTransport(err), "expected transport error, was: %v", err)
}

func TestMissingCredentialsIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := vendingAt(server.URL).Exchange(context.Background(), "tok")

	assert.True(t, errs.IsTransport(err), "expected transport error, was: %v", err)
}

func TestMalformedExpirationIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"credentials": map[string]string{
				"access_key_id":     "AKIATEST",
				"secret_access_key": "secret",
				"session_token":     "session",
				"expiration":        "next tuesday",
			},
		})
	}))
	defer server.Close()

	_, err := vendingAt(server.URL).Exchange(context.Background(), "tok")

	assert.True(t, errs.IsTransport(err), "expected transport error, was: %v", err)
}
