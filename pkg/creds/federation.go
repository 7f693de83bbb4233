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
package creds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"

	"github.com/uswitch/oidc-creds/pkg/config"
	"github.com/uswitch/oidc-creds/pkg/errs"
)

const federationOp = "federation endpoint"

type stsAPI interface {
	AssumeRoleWithWebIdentityWithContext(ctx aws.Context, in *sts.AssumeRoleWithWebIdentityInput, opts ...request.Option) (*sts.AssumeRoleWithWebIdentityOutput, error)
}

// FederationExchanger assumes a role directly with STS, presenting the
// identity token as the web identity. No storage credentials are needed to
// call it, only a token the role's trust policy accepts.
type FederationExchanger struct {
	svc             stsAPI
	roleARN         string
	sessionName     string
	sessionDuration time.Duration

	bucket string
	prefix string
	region string
}

func NewFederationExchanger(cfg *config.Config) (*FederationExchanger, error) {
	awsConfig := aws.NewConfig().
		WithRegion(cfg.Region).
		WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout})
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errs.Config("aws", "creating session: %s", err.Error())
	}
	return &FederationExchanger{
		svc:             sts.New(sess),
		roleARN:         cfg.RoleARN,
		sessionName:     sanitizeSessionName(cfg.SessionName),
		sessionDuration: cfg.SessionDuration,
		bucket:          cfg.Bucket,
		prefix:          cfg.Prefix,
		region:          cfg.Region,
	}, nil
}

func (e *FederationExchanger) Exchange(ctx context.Context, token string) (*Credentials, error) {
	exchangeExecuting.Inc()
	defer exchangeExecuting.Dec()
	started := time.Now()

	in := &sts.AssumeRoleWithWebIdentityInput{
		RoleArn:          aws.String(e.roleARN),
		RoleSessionName:  aws.String(e.sessionName),
		WebIdentityToken: aws.String(token),
		DurationSeconds:  aws.Int64(int64(e.sessionDuration.Seconds())),
	}
	resp, err := e.svc.AssumeRoleWithWebIdentityWithContext(ctx, in)
	exchangeTiming.Observe(time.Since(started).Seconds())
	if err != nil {
		errorExchanging.Inc()
		return nil, mapFederationError(err)
	}

	return &Credentials{
		AccessKeyId:     aws.StringValue(resp.Credentials.AccessKeyId),
		SecretAccessKey: aws.StringValue(resp.Credentials.SecretAccessKey),
		SessionToken:    aws.StringValue(resp.Credentials.SessionToken),
		Expiration:      aws.TimeValue(resp.Credentials.Expiration),
		Bucket:          e.bucket,
		Prefix:          e.prefix,
		Region:          e.region,
	}, nil
}

// mapFederationError classifies STS failures. Codes meaning the token or
// role was refused become AuthErrors so callers stop retrying; everything
// else, including STS failing to reach the identity provider, counts as
// transport.
func mapFederationError(err error) error {
	var rf awserr.RequestFailure
	if errors.As(err, &rf) {
		switch rf.Code() {
		case sts.ErrCodeExpiredTokenException,
			sts.ErrCodeInvalidIdentityTokenException,
			sts.ErrCodeIDPRejectedClaimException,
			"AccessDenied":
			return errs.Auth(federationOp, rf.StatusCode(), fmt.Sprintf("%s: %s", rf.Code(), rf.Message()))
		}
		if rf.StatusCode() >= 400 && rf.StatusCode() < 500 && rf.Code() != sts.ErrCodeIDPCommunicationErrorException {
			return errs.Auth(federationOp, rf.StatusCode(), fmt.Sprintf("%s: %s", rf.Code(), rf.Message()))
		}
	}
	return errs.Transport(federationOp, err)
}

var sessionNameInvalid = regexp.MustCompile(`[^\w+=,.@-]`)

// sanitizeSessionName replaces characters STS rejects in role session names
// and truncates to the 64 character limit.
func sanitizeSessionName(name string) string {
	name = sessionNameInvalid.ReplaceAllString(name, "-")
	if len(name) > 64 {
		name = name[:64]
	}
	if len(name) < 2 {
		name = "oidc-creds"
	}
	return name
}
