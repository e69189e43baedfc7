package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "laurel.toml")
	doc := `
directory = "/tmp/laurel"
input = "unix:/run/audit.sock"

[auditlog]
file = "audit.log"
size = 1048576
generations = 3

[filter]
filter-keys = ["suppress"]
keep-first-per-process = true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/laurel", cfg.Directory)
	assert.Equal(t, "unix:/run/audit.sock", cfg.Input)
	assert.Equal(t, int64(1048576), cfg.AuditLog.Size)
	assert.Equal(t, 3, cfg.AuditLog.Generations)
	assert.Equal(t, []string{"suppress"}, cfg.Filter.FilterKeys)
	assert.True(t, cfg.Filter.KeepFirstPerProcess)

	// Defaults not present in the document survive the merge.
	assert.Equal(t, 300*time.Second, cfg.State.GraceWindow)
	assert.True(t, cfg.Translate.Universal)
}

func TestValidateRejectsBadInput(t *testing.T) {
	cfg := Default()
	cfg.Input = "tcp:localhost:514"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadFilterAction(t *testing.T) {
	cfg := Default()
	cfg.Filter.FilterAction = "explode"
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsUnixSocketInput(t *testing.T) {
	cfg := Default()
	cfg.Input = "unix:/run/audispd_events"
	assert.NoError(t, cfg.Validate())
}
