package errs

import (
	"fmt"
	"testing"
)

func TestKindsAreDistinct(t *testing.T) {
	auth := Auth("token endpoint", 401, "invalid_client")
	transport := Transport("token endpoint", fmt.Errorf("connection refused"))
	config := Config("scopes", "at least one scope is required")

	if !IsAuth(auth) || IsTransport(auth) || IsConfig(auth) {
		t.Error("auth error classified incorrectly")
	}
	if !IsTransport(transport) || IsAuth(transport) || IsConfig(transport) {
		t.Error("transport error classified incorrectly")
	}
	if !IsConfig(config) || IsAuth(config) || IsTransport(config) {
		t.Error("config error classified incorrectly")
	}
}

func TestClassSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("fetching token: %w", Auth("token endpoint", 403, "unauthorized_client"))

	if !IsAuth(err) {
		t.Error("expected wrapped auth error to remain an auth error")
	}
	if Kind(err) != "auth" {
		t.Error("unexpected kind, was", Kind(err))
	}
}

func TestMessagesCarryProviderPayload(t *testing.T) {
	err := Auth("credentials api", 403, "Client not authorized")

	if got := err.Error(); got != "credentials api rejected request (status 403): Client not authorized" {
		t.Error("unexpected message, was", got)
	}
}

func TestKindForUnclassifiedError(t *testing.T) {
	if Kind(fmt.Errorf("some error")) != "unknown" {
		t.Error("expected unknown kind")
	}
}
