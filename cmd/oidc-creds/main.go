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
package main

import (
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

// parser is satisfied by kingpin.Application and kingpin.CmdClause so option
// groups can bind to the root command or a subcommand.
type parser interface {
	Flag(name, help string) *kingpin.FlagClause
}

func main() {
	rootParser := kingpin.CommandLine

	credentialsParser := rootParser.Command("credentials", "fetch credentials once and print them")
	credentialsOpts := &credentialsCommand{}
	credentialsOpts.Bind(credentialsParser)

	credentialDaemonParser := rootParser.Command("credential-daemon", "keep credential files refreshed")
	credentialDaemonOpts := &credentialDaemonCommand{}
	credentialDaemonOpts.Bind(credentialDaemonParser)

	tokenDaemonParser := rootParser.Command("token-daemon", "keep an identity token file refreshed")
	tokenDaemonOpts := &tokenDaemonCommand{}
	tokenDaemonOpts.Bind(tokenDaemonParser)

	serveParser := rootParser.Command("serve", "serve credentials over local HTTP")
	serveOpts := &serveCommand{}
	serveOpts.Bind(serveParser)

	checkParser := rootParser.Command("check", "check the provider configuration end to end")
	checkOpts := &checkCommand{}
	checkOpts.Bind(checkParser)

	switch kingpin.Parse() {
	case "credentials":
		credentialsOpts.Run()
	case "credential-daemon":
		credentialDaemonOpts.Run()
	case "token-daemon":
		tokenDaemonOpts.Run()
	case "serve":
		serveOpts.Run()
	case "check":
		checkOpts.Run()
	}
}
