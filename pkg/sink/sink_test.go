package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uswitch/oidc-creds/pkg/creds"
)

func testCredentials() *creds.Credentials {
	return &creds.Credentials{
		AccessKeyId:     "AKIATEST",
		SecretAccessKey: "secret",
		SessionToken:    "session",
		Expiration:      time.Date(2022, 5, 10, 13, 0, 0, 0, time.UTC),
		Bucket:          "data-bucket",
		Prefix:          "team/",
		Region:          "eu-west-1",
	}
}

func TestWriteReplacesWholeArtifact(t *testing.T) {
	dir := NewDir(t.TempDir())

	if err := dir.Write("credentials", []byte("first version")); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if err := dir.Write("credentials", []byte("second version")); err != nil {
		t.Fatal("unexpected error:", err)
	}

	content, err := os.ReadFile(filepath.Join(dir.path, "credentials"))
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if string(content) != "second version" {
		t.Error("unexpected content:", string(content))
	}
}

func TestWriteLeavesNoTemporaryFiles(t *testing.T) {
	dir := NewDir(t.TempDir())

	if err := dir.Write("credentials", []byte("content")); err != nil {
		t.Fatal("unexpected error:", err)
	}

	entries, err := os.ReadDir(dir.path)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(entries) != 1 || entries[0].Name() != "credentials" {
		t.Errorf("expected only the artifact, found %d entries", len(entries))
	}
}

func TestArtifactsAreOwnerOnly(t *testing.T) {
	dir := NewDir(t.TempDir())

	if err := dir.Write("credentials", []byte("content")); err != nil {
		t.Fatal("unexpected error:", err)
	}

	info, err := os.Stat(filepath.Join(dir.path, "credentials"))
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, was %o", info.Mode().Perm())
	}
}

func TestCreatesMissingDirectory(t *testing.T) {
	dir := NewDir(filepath.Join(t.TempDir(), "aws", "creds"))

	if err := dir.Write("credentials", []byte("content")); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if _, err := os.Stat(filepath.Join(dir.path, "credentials")); err != nil {
		t.Error("expected the artifact to exist:", err)
	}
}

func TestProcessJSONShape(t *testing.T) {
	data, err := ProcessJSON(testCredentials())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal("unexpected error:", err)
	}

	if out["Version"] != float64(1) {
		t.Error("expected Version 1, was", out["Version"])
	}
	if out["AccessKeyId"] != "AKIATEST" || out["SecretAccessKey"] != "secret" || out["SessionToken"] != "session" {
		t.Error("unexpected fields:", out)
	}
	if out["Expiration"] != "2022-05-10T13:00:00Z" {
		t.Error("unexpected expiration:", out["Expiration"])
	}
}

func TestEnvFileExports(t *testing.T) {
	content := string(EnvFile(testCredentials(), time.Date(2022, 5, 10, 12, 0, 0, 0, time.UTC)))

	for _, line := range []string{
		`export AWS_ACCESS_KEY_ID="AKIATEST"`,
		`export AWS_SECRET_ACCESS_KEY="secret"`,
		`export AWS_SESSION_TOKEN="session"`,
		`export AWS_REGION="eu-west-1"`,
		"# Expires: 2022-05-10T13:00:00Z",
	} {
		if !strings.Contains(content, line) {
			t.Errorf("expected %q in env file:\n%s", line, content)
		}
	}
}

func TestINIFileSection(t *testing.T) {
	content := string(INIFile(testCredentials(), time.Date(2022, 5, 10, 12, 0, 0, 0, time.UTC)))

	for _, line := range []string{
		"[default]",
		"aws_access_key_id = AKIATEST",
		"aws_secret_access_key = secret",
		"aws_session_token = session",
		"region = eu-west-1",
	} {
		if !strings.Contains(content, line) {
			t.Errorf("expected %q in credentials file:\n%s", line, content)
		}
	}
}

func TestJSONFileCarriesStorageScope(t *testing.T) {
	data, err := JSONFile(testCredentials())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if out["access_key_id"] != "AKIATEST" || out["region"] != "eu-west-1" {
		t.Error("unexpected fields:", out)
	}
	if out["bucket"] != "data-bucket" || out["prefix"] != "team/" {
		t.Error("expected storage scope in artifact:", out)
	}
}
