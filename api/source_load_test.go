package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ephico2real2/qrs/backend"
	fileBackend "github.com/ephico2real2/qrs/backend/file"
	"github.com/ephico2real2/qrs/backend/git"
	"github.com/ephico2real2/qrs/config"
	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_loadQuotaSourceFileBackend(t *testing.T) {
	dir := t.TempDir()
	_writeFile(t, dir, "production.yaml", productionQuotas)
	_writeFile(t, dir, "README.md", `not a value file`)

	backends := backend.Backends{&fileBackend.Backend{Config: config.FileConfig{Path: dir}}}

	got, err := LoadQuotaSource(context.Background(), backends, RenderRequest{Environment: "production"})
	require.NoError(t, err)

	assert.Equal(t, "production", got.Environment)
	assert.Equal(t, "", got.Version)
	assert.Equal(t, filepath.Join(dir, "production.yaml"), got.FileName)

	quotas, ok := got.Document["quotas"].([]any)
	require.True(t, ok)
	assert.Len(t, quotas, 2)
}

func Test_loadQuotaSourceMissingEnvironment(t *testing.T) {
	dir := t.TempDir()
	_writeFile(t, dir, "production.yaml", productionQuotas)

	backends := backend.Backends{&fileBackend.Backend{Config: config.FileConfig{Path: dir}}}

	_, err := LoadQuotaSource(context.Background(), backends, RenderRequest{Environment: "missing"})
	assert.ErrorIs(t, err, ErrNoQuotaFile)
	assert.EqualError(t, err, "no quota value file for environment: missing")
}

func Test_loadQuotaSourceSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	_writeFile(t, dir, "production.md", `quotas: []`)
	_writeFile(t, dir, "production.txt", `quotas: []`)

	backends := backend.Backends{&fileBackend.Backend{Config: config.FileConfig{Path: dir}}}

	_, err := LoadQuotaSource(context.Background(), backends, RenderRequest{Environment: "production"})
	assert.ErrorIs(t, err, ErrNoQuotaFile)
}

func Test_loadQuotaSourceBackendPriority(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	_writeFile(t, first, "production.yaml", `
quotas:
  - namespace: first
    limits:
      pods: "1"
`)
	_writeFile(t, second, "production.yaml", `
quotas:
  - namespace: second
    limits:
      pods: "2"
`)
	_writeFile(t, second, "staging.yaml", `
quotas:
  - namespace: second
    limits:
      pods: "2"
`)

	backends := backend.Backends{
		&fileBackend.Backend{Config: config.FileConfig{Path: first}},
		&fileBackend.Backend{Config: config.FileConfig{Path: second}},
	}

	// Both hold production; the first backend wins
	got, err := LoadQuotaSource(context.Background(), backends, RenderRequest{Environment: "production"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(first, "production.yaml"), got.FileName)

	// Only the second holds staging
	got, err = LoadQuotaSource(context.Background(), backends, RenderRequest{Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "staging.yaml"), got.FileName)
}

func Test_loadQuotaSourceGitBackend(t *testing.T) {
	gitDir, err := os.MkdirTemp("", "*")
	assert.NoError(t, err)
	defer os.Remove(gitDir)

	repo, err := goGit.PlainInit(gitDir, false)
	assert.NoError(t, err)

	wt, err := repo.Worktree()
	assert.NoError(t, err)

	_writeGitFile(t, gitDir, wt, "production.yaml", productionQuotas)
	_writeGitFile(t, gitDir, wt, "staging.yaml", `
quotas:
  - namespace: dev
    limits:
      pods: "5"
`)

	backends := backend.Backends{&git.Backend{Repo: repo}}

	got, err := LoadQuotaSource(context.Background(), backends, RenderRequest{Environment: "production"})
	require.NoError(t, err)

	assert.Equal(t, "production", got.Environment)
	assert.Equal(t, _getHash(repo), got.Version)
	assert.Equal(t, "/production.yaml", got.FileName)
}

var sig = &object.Signature{
	Name:  "A",
	Email: "a@b.com",
}

func _writeGitFile(t *testing.T, gitDir string, wt *goGit.Worktree, filename string, contents string) {
	err := os.WriteFile(filepath.Join(gitDir, filename), []byte(contents), 0644)
	assert.NoError(t, err)

	_, err = wt.Add(filename)
	assert.NoError(t, err)
	_, err = wt.Commit("", &goGit.CommitOptions{
		Author: sig,
	})
	assert.NoError(t, err)
}

func _writeFile(t *testing.T, dir string, name string, contents string) {
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(contents), 0644)
	assert.NoError(t, err)
}

func _getHash(repo *goGit.Repository) string {
	ref, err := repo.Head()
	if err != nil {
		return ""
	}

	commit, _ := repo.CommitObject(ref.Hash())
	return commit.Hash.String()
}
