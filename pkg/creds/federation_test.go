package creds

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sts"

	"github.com/uswitch/oidc-creds/pkg/errs"
)

type stubSTS struct {
	in  *sts.AssumeRoleWithWebIdentityInput
	out *sts.AssumeRoleWithWebIdentityOutput
	err error
}

func (s *stubSTS) AssumeRoleWithWebIdentityWithContext(ctx aws.Context, in *sts.AssumeRoleWithWebIdentityInput, opts ...request.Option) (*sts.AssumeRoleWithWebIdentityOutput, error) {
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func federationWith(stub *stubSTS) *FederationExchanger {
	return &FederationExchanger{
		svc:             stub,
		roleARN:         "arn:aws:iam::123456789012:role/reader",
		sessionName:     sanitizeSessionName("build agent-7"),
		sessionDuration: time.Hour,
		bucket:          "data-bucket",
		prefix:          "team/",
		region:          "eu-west-1",
	}
}

func TestExchangePassesTokenAndRole(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	stub := &stubSTS{
		out: &sts.AssumeRoleWithWebIdentityOutput{
			Credentials: &sts.Credentials{
				AccessKeyId:     aws.String("AKIATEST"),
				SecretAccessKey: aws.String("secret"),
				SessionToken:    aws.String("session"),
				Expiration:      aws.Time(expiry),
			},
		},
	}

	credentials, err := federationWith(stub).Exchange(context.Background(), "token-abc")
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if aws.StringValue(stub.in.WebIdentityToken) != "token-abc" {
		t.Error("expected the identity token to be presented, was", aws.StringValue(stub.in.WebIdentityToken))
	}
	if aws.StringValue(stub.in.RoleArn) != "arn:aws:iam::123456789012:role/reader" {
		t.Error("unexpected role arn:", aws.StringValue(stub.in.RoleArn))
	}
	if aws.StringValue(stub.in.RoleSessionName) != "build-agent-7" {
		t.Error("expected a sanitized session name, was", aws.StringValue(stub.in.RoleSessionName))
	}
	if aws.Int64Value(stub.in.DurationSeconds) != 3600 {
		t.Error("unexpected duration:", aws.Int64Value(stub.in.DurationSeconds))
	}

	if credentials.AccessKeyId != "AKIATEST" || !credentials.Expiration.Equal(expiry) {
		t.Error("unexpected credentials:", credentials)
	}
	if credentials.Bucket != "data-bucket" || credentials.Region != "eu-west-1" {
		t.Error("expected configured storage metadata, was", credentials)
	}
}

func TestRejectionCodesAreAuthErrors(t *testing.T) {
	codes := []string{
		sts.ErrCodeExpiredTokenException,
		sts.ErrCodeInvalidIdentityTokenException,
		sts.ErrCodeIDPRejectedClaimException,
		"AccessDenied",
	}
	for _, code := range codes {
		stub := &stubSTS{err: awserr.NewRequestFailure(awserr.New(code, "refused", nil), 403, "req-1")}

		_, err := federationWith(stub).Exchange(context.Background(), "token")
		if !errs.IsAuth(err) {
			t.Errorf("expected auth error for %s, was: %v", code, err)
		}
	}
}

func TestIdPCommunicationFailureIsTransport(t *testing.T) {
	stub := &stubSTS{err: awserr.NewRequestFailure(awserr.New(sts.ErrCodeIDPCommunicationErrorException, "idp timed out", nil), 400, "req-2")}

	_, err := federationWith(stub).Exchange(context.Background(), "token")
	if !errs.IsTransport(err) {
		t.Error("expected transport error, was:", err)
	}
}

func TestNetworkFailureIsTransport(t *testing.T) {
	stub := &stubSTS{err: errors.New("dial tcp: connection refused")}

	_, err := federationWith(stub).Exchange(context.Background(), "token")
	if !errs.IsTransport(err) {
		t.Error("expected transport error, was:", err)
	}
}

func TestSanitizeSessionName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"build agent-7", "build-agent-7"},
		{"host.example.com", "host.example.com"},
		{"user@host=env,a.b", "user@host=env,a.b"},
		{"pod/name:latest", "pod-name-latest"},
		{"", "oidc-creds"},
	}
	for _, c := range cases {
		if got := sanitizeSessionName(c.in); got != c.want {
			t.Errorf("sanitizeSessionName(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	long := sanitizeSessionName(strings.Repeat("x", 80))
	if len(long) != 64 {
		t.Error("expected truncation to 64 characters, was", len(long))
	}
}
