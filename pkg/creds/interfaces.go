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
)

// Exchanger swaps an identity token for temporary storage credentials.
type Exchanger interface {
	Exchange(ctx context.Context, token string) (*Credentials, error)
}

type CredentialsProvider interface {
	Credentials(ctx context.Context) (*Credentials, error)
}

type CredentialsCache interface {
	Credentials(ctx context.Context) (*Credentials, error)
	Expiring() chan *Credentials
}
