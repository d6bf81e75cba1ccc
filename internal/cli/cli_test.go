package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecscan"
	"github.com/hupe1980/vecscan/backend/bolt"
	"github.com/hupe1980/vecscan/backup"
	"github.com/hupe1980/vecscan/internal/config"
)

type env struct {
	dir    string
	config string
}

func newEnv(t *testing.T, extra string) env {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
backend:
  type: bolt
  path: %s
embedder:
  type: hashing
  dim: 64
backup:
  target: local
  path: %s
  prefix: nightly
%s`, filepath.Join(dir, "vecscan.db"), filepath.Join(dir, "backups"), extra)

	path := filepath.Join(dir, "vecscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return env{dir: dir, config: path}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(config.NewLoader(), "test", "abc123", "today")

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	require.NoError(t, err)
	return out
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()
	var values []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var v T
		require.NoError(t, gojson.Unmarshal([]byte(line), &v))
		values = append(values, v)
	}
	return values
}

const denseRecords = `{"id":"1","vector":[1,0,0]}
{"id":"2","vector":[0,1,0]}
{"id":"3","vector":[1,1,0],"attributes":{"lang":"en"}}
`

func TestInsertQuery(t *testing.T) {
	e := newEnv(t, "")

	out := e.mustRun(t, denseRecords, "insert", "--manual")
	assert.Equal(t, "inserted 3 records\n", out)

	hits := decodeLines[hitResult](t, e.mustRun(t, "", "query", "--vector", "1,0,0", "--limit", "2"))
	require.Len(t, hits, 2)
	assert.Equal(t, "1", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "3", hits[1].ID)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)
	assert.Equal(t, map[string]any{"lang": "en"}, hits[1].Attributes)

	manual := decodeLines[hitResult](t, e.mustRun(t, "", "query", "--manual", "--vector", "0,1,0", "--limit", "1"))
	require.Len(t, manual, 1)
	assert.Equal(t, "2", manual[0].ID)
}

func TestInsert_FromFile(t *testing.T) {
	e := newEnv(t, "")
	path := filepath.Join(e.dir, "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(denseRecords), 0o600))

	e.mustRun(t, "", "insert", "--file", path)
	assert.Equal(t, "1\n2\n3\n", e.mustRun(t, "", "keys"))
}

func TestInsert_Errors(t *testing.T) {
	e := newEnv(t, "")

	_, err := e.run(t, "", "insert")
	assert.ErrorIs(t, err, errNoInput)

	_, err = e.run(t, "{not json}", "insert")
	assert.Error(t, err)

	_, err = e.run(t, denseRecords, "insert", "--binary", "--manual")
	assert.Error(t, err)

	e.mustRun(t, denseRecords, "insert")
	_, err = e.run(t, `{"id":"1","vector":[1,0,0]}`, "insert")
	assert.ErrorIs(t, err, vecscan.ErrDuplicateIdentifier)
}

func TestQueryByText(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, `{"id":"greeting","text":"hello world"}
{"id":"tax","text":"quarterly tax report"}
`, "insert")

	hits := decodeLines[hitResult](t, e.mustRun(t, "", "query", "--text", "hello world", "--limit", "1"))
	require.Len(t, hits, 1)
	assert.Equal(t, "greeting", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestQuery_Hamming(t *testing.T) {
	e := newEnv(t, "accel:\n  module: lanes256\n")
	e.mustRun(t, `{"id":"a","vector":[0.1,0.9,0.5,0.4]}
{"id":"b","vector":[0.9,0.1,0.4,0.5]}
`, "insert", "--binary")

	hits := decodeLines[hitResult](t, e.mustRun(t, "", "query", "--vector", "0.1,0.9,0.5,0.4", "--metric", "hamming"))
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Zero(t, hits[0].Score)
	assert.Equal(t, "b", hits[1].ID)
	assert.Equal(t, 4.0, hits[1].Score)
}

func TestQuery_Errors(t *testing.T) {
	e := newEnv(t, "")

	_, err := e.run(t, "", "query")
	assert.Error(t, err)

	_, err = e.run(t, "", "query", "--vector", "1,0", "--metric", "l2")
	assert.Error(t, err)

	_, err = e.run(t, "", "query", "--manual", "--text", "hello")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, denseRecords, "insert")

	out := e.mustRun(t, "", "update", "--id", "1", "--attrs", `{"status":"published"}`, "--vector", "0,0,1")
	assert.Equal(t, "updated 1\n", out)

	hits := decodeLines[hitResult](t, e.mustRun(t, "", "query", "--vector", "0,0,1", "--limit", "1"))
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
	assert.Equal(t, "published", hits[0].Attributes["status"])

	_, err := e.run(t, "", "update", "--id", "missing", "--attrs", `{"a":1}`)
	assert.ErrorIs(t, err, vecscan.ErrNotFound)

	_, err = e.run(t, "", "update")
	assert.Error(t, err)

	_, err = e.run(t, "", "update", "--id", "1", "--attrs", "[")
	assert.Error(t, err)
}

func TestUpdate_Batch(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, denseRecords, "insert")

	out := e.mustRun(t, `{"id":"1","attributes":{"n":1}}
{"id":"2","attributes":{"n":2}}
`, "update", "--file", "-")
	assert.Equal(t, "updated 2 records\n", out)

	_, err := e.run(t, `{"id":"1","attributes":{"n":10}}
{"id":"missing","attributes":{"n":0}}
`, "update", "--file", "-")
	assert.ErrorIs(t, err, vecscan.ErrNotFound)

	// The failed batch left record 1 untouched.
	hits := decodeLines[hitResult](t, e.mustRun(t, "", "query", "--vector", "1,0,0", "--limit", "1"))
	require.Len(t, hits, 1)
	assert.Equal(t, float64(1), hits[0].Attributes["n"])
}

func TestDeleteKeysHas(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, denseRecords, "insert")
	e.mustRun(t, `{"id":"bare"}`, "insert", "--manual")

	has := decodeLines[hasResult](t, e.mustRun(t, "", "has", "1", "bare", "missing"))
	assert.Equal(t, []hasResult{
		{ID: "1", HasEmbedding: true},
		{ID: "bare", HasEmbedding: false},
		{ID: "missing", HasEmbedding: false},
	}, has)

	assert.Equal(t, "deleted 1 records\n", e.mustRun(t, "", "delete", "2"))
	assert.Equal(t, "deleted 2 records\n", e.mustRun(t, "", "delete", "3", "missing"))
	assert.Equal(t, "1\nbare\n", e.mustRun(t, "", "keys"))

	_, err := e.run(t, "", "delete")
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, denseRecords, "insert")

	manifests := decodeLines[backup.Manifest](t, e.mustRun(t, "", "backup", "run"))
	require.Len(t, manifests, 1)
	m := manifests[0]
	assert.Equal(t, "zstd", m.Compression)
	assert.Positive(t, m.Bytes)

	listed := decodeLines[backup.Manifest](t, e.mustRun(t, "", "backup", "list"))
	require.Len(t, listed, 1)
	assert.Equal(t, m.ID, listed[0].ID)

	restored := filepath.Join(e.dir, "restored.db")
	out := e.mustRun(t, "", "backup", "restore", "--out", restored)
	assert.Contains(t, out, m.ID)

	_, err := e.run(t, "", "backup", "restore", m.ID, "--out", restored)
	assert.Error(t, err, "existing file without --force")
	e.mustRun(t, "", "backup", "restore", m.ID, "--out", restored, "--force")

	b, err := bolt.Open(restored, nil)
	require.NoError(t, err)
	s, err := vecscan.New(b, vecscan.Config{})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	e.mustRun(t, "", "backup", "delete", m.ID)
	assert.Empty(t, strings.TrimSpace(e.mustRun(t, "", "backup", "list")))

	_, err = e.run(t, "", "backup", "restore", "--out", filepath.Join(e.dir, "none.db"))
	assert.ErrorIs(t, err, backup.ErrNoBackups)
}

func TestBackup_MemoryBackend(t *testing.T) {
	e := newEnv(t, "")
	t.Setenv("VECSCAN_BACKEND_TYPE", "memory")

	_, err := e.run(t, "", "backup", "run")
	assert.ErrorContains(t, err, "does not support snapshots")
}

func TestAccel(t *testing.T) {
	e := newEnv(t, "accel:\n  module: lanes256\n")
	out := e.mustRun(t, "", "accel")
	assert.Contains(t, out, "ISA: ")
	assert.Contains(t, out, "CPU features: ")
	assert.Contains(t, out, "lanes256")
	assert.Contains(t, out, "max ")

	t.Setenv("VECSCAN_ACCEL_MODULE", "missing-module")
	out = e.mustRun(t, "", "accel")
	assert.Contains(t, out, "missing-module (unavailable")
}

func TestLogLevelFlag(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run(t, "", "--log-level", "loud", "keys")
	assert.Error(t, err)

	_, err = e.run(t, "", "--log-level", "debug", "keys")
	assert.NoError(t, err)
}

func TestVersion(t *testing.T) {
	e := newEnv(t, "")
	out := e.mustRun(t, "", "version")
	assert.Contains(t, out, "vecscan test (abc123) built on today")
}
