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

// Package sink writes credential artifacts for other processes to consume.
// Writes are atomic: content goes to a temporary file in the target
// directory which is then renamed over the destination, so a reader sees
// either the previous complete artifact or the new one, never a partial.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact names written by the credential loop.
const (
	EnvFileName  = "aws-credentials.env"
	JSONFileName = "aws-credentials.json"
	INIFileName  = "credentials"
)

// Writer receives rendered artifacts by name.
type Writer interface {
	Write(name string, data []byte) error
}

// Dir writes artifacts into one directory, creating it on first use. The
// files carry live credentials so they are readable by the owner only.
type Dir struct {
	path string
}

func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) Write(name string, data []byte) error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", d.path, err)
	}
	return WriteAtomic(filepath.Join(d.path, name), data, 0600)
}

// WriteAtomic replaces path with data via a same-directory rename. The
// temporary file is cleaned up on any failure, leaving whatever was at
// path before untouched.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode on %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
