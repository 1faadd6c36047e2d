package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clouddisk-sync/core/config"
	"clouddisk-sync/core/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupEnv points every store at a temp dir and returns it.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_NAME", filepath.Join(dir, "clouddisk.db"))
	t.Setenv("DENTRY_PATH", filepath.Join(dir, "dentry"))
	t.Setenv("DENTRY_IN_MEMORY", "false")
	t.Setenv("SYNC_DATA_DIR", filepath.Join(dir, "content"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SERVER_API_KEY", "secret")
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(append([]string{"--env-dir", dir}, args...))
	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func pulledFile(id, name string) *record.Record {
	rec := record.New(id)
	rec.Version = 1
	rec.Fields[record.KeyFileName] = record.String(name)
	rec.Fields[record.KeyParentFolder] = record.String("root")
	rec.Fields[record.KeyIsDirectory] = record.String(record.TypeFile)
	rec.Fields[record.KeySize] = record.Int(3)
	rec.Fields[record.KeySha256] = record.String("sha-" + id)
	rec.Fields[record.KeyDirectlyRecycled] = record.Bool(false)
	rec.Fields[record.KeyIsRecycled] = record.Bool(false)
	rec.Fields[record.KeyAttributes] = record.Map(record.Fields{
		record.KeyTimeAdded:      record.Int(900),
		record.KeyTimeEdited:     record.Int(1900),
		record.KeyMetaTimeEdited: record.Int(1950),
	})
	return rec
}

func TestPullStatusClean(t *testing.T) {
	dir := setupEnv(t)
	batch, err := json.Marshal([]*record.Record{pulledFile("A", "a.pdf"), pulledFile("B", "b.pdf")})
	require.NoError(t, err)
	batchFile := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(batchFile, batch, 0o644))

	out, err := run(t, dir, "pull", "--file", batchFile)
	require.NoError(t, err)
	var report pullReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 2, report.Applied)
	assert.Empty(t, report.Failures)

	out, err = run(t, dir, "status")
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.EqualValues(t, 2, st["by_position"].(map[string]any)["cloud"])
	assert.EqualValues(t, 2, st["dentries"].(map[string]any)["live"])

	out, err = run(t, dir, "push", "--kind", "created")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, err = run(t, dir, "clean", "--action", "clear")
	require.NoError(t, err)

	out, err = run(t, dir, "status")
	require.NoError(t, err)
	var cleaned map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cleaned))
	assert.Empty(t, cleaned["by_position"])
}

func TestPushUnknownKind(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, dir, "push", "--kind", "everything")
	assert.ErrorContains(t, err, "unknown batch kind")
}

func TestCleanUnknownAction(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, dir, "clean", "--action", "wipe")
	assert.Error(t, err)
}

func TestPullBadBatch(t *testing.T) {
	dir := setupEnv(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "an array"}`), 0o644))

	_, err := run(t, dir, "pull", "--file", bad)
	assert.ErrorContains(t, err, "failed to parse batch")
}

func TestNewServer(t *testing.T) {
	dir := setupEnv(t)
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	eng, err := openEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	app, err := newServer(cfg, eng, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/sync/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req := httptest.NewRequest("GET", "/sync/status", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Ray-ID"))
}

func TestCheckSchema(t *testing.T) {
	dir := setupEnv(t)
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	eng, err := openEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, checkSchema(context.Background(), eng.db))
}
