// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/moviecluster/common/log"
	"github.com/gorse-io/moviecluster/logics"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func writeFixture(t *testing.T) string {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.csv"), []byte(
		"user_id,movie_id,rating\n"+
			"1,10,5\n"+
			"2,10,4\n"+
			"2,20,4\n"+
			"3,20,5\n"+
			"3,30,2\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "movies.csv"), []byte(
		"movie_id,title\n"+
			"10,Toy Story\n"+
			"20,Heat\n"+
			"30,Alien\n"), 0644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	log.CloseLogger()
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	dir := writeFixture(t)
	out, err := execute(t, "recommend", "1", "--data", "csv://"+dir, "-k", "1", "-n", "2")
	assert.NoError(t, err)
	assert.Contains(t, out, "Heat")
	assert.Contains(t, out, "Alien")
	assert.NotContains(t, out, "Toy Story")
	assert.Less(t, strings.Index(out, "Heat"), strings.Index(out, "Alien"))
}

func TestRecommendCommandUsers(t *testing.T) {
	dir := writeFixture(t)
	out, err := execute(t, "recommend", "1", "3", "--data", "csv://"+dir, "-k", "1", "--jobs", "2")
	assert.NoError(t, err)
	// rows follow the order of user ids
	assert.Less(t, strings.Index(out, "Heat"), strings.Index(out, "Toy Story"))
	assert.Less(t, strings.Index(out, "Alien"), strings.Index(out, "Toy Story"))

	_, err = execute(t, "recommend", "1", "404", "3", "--data", "csv://"+dir, "-k", "1", "--jobs", "2")
	var unknown *logics.UnknownUserError
	assert.True(t, errors.As(err, &unknown))
}

func TestRecommendCommandAll(t *testing.T) {
	dir := writeFixture(t)
	out, err := execute(t, "recommend", "--all", "--data", "csv://"+dir, "-k", "1", "--jobs", "2", "-n", "1")
	assert.NoError(t, err)
	assert.Contains(t, out, "Heat")
	assert.Contains(t, out, "Alien")
	assert.Contains(t, out, "Toy Story")

	_, err = execute(t, "recommend", "--all", "1", "--data", "csv://"+dir)
	assert.Error(t, err)
	_, err = execute(t, "recommend", "--data", "csv://"+dir)
	assert.Error(t, err)
}

func TestRecommendCommandUnknownUser(t *testing.T) {
	dir := writeFixture(t)
	_, err := execute(t, "recommend", "404", "--data", "csv://"+dir, "-k", "1")
	var unknown *logics.UnknownUserError
	assert.True(t, errors.As(err, &unknown))
}

func TestRecommendCommandInvalidConfig(t *testing.T) {
	dir := writeFixture(t)
	_, err := execute(t, "recommend", "1", "--data", "redis://"+dir)
	assert.Error(t, err)
	_, err = execute(t, "recommend", "1", "--data", "csv://"+dir, "-k", "0")
	assert.Error(t, err)
}

func TestClustersCommand(t *testing.T) {
	dir := writeFixture(t)
	out, err := execute(t, "clusters", "--data", "csv://"+dir, "-k", "1")
	assert.NoError(t, err)
	assert.Contains(t, out, "3")
}

func TestImportCommand(t *testing.T) {
	dir := writeFixture(t)
	target := filepath.Join(t.TempDir(), "movies.db")
	_, err := execute(t, "import", "--from", "csv://"+dir, "--to", "sqlite://"+target)
	assert.NoError(t, err)
	out, err := execute(t, "recommend", "1", "--data", "sqlite://"+target, "-k", "1", "-n", "1")
	assert.NoError(t, err)
	assert.Contains(t, out, "Heat")
	assert.NotContains(t, out, "Alien")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, out, "Version:")
}
