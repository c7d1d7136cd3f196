package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hexstore/internal/document"
)

type testServer struct {
	addr string
	db   string
	log  *syncBuffer
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startServe runs the serve command in-process on a loopback listener.
func startServe(t *testing.T) *testServer {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "hex.db")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ts := &testServer{addr: ln.Addr().String(), db: dbPath, log: &syncBuffer{}}
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		Listener:    ln,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(ts.log)

	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", ts.addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	})
	return ts
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	if stdin != nil {
		cmd.SetIn(bytes.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iota.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestCommands_PutGetDelete(t *testing.T) {
	ts := startServe(t)
	payload := document.Marshal(document.New("hexcasting:double", document.Double(42)))

	out, err := execute(t, nil, "put", "--addr", ts.addr, "qwed", writeFile(t, payload))
	require.NoError(t, err)
	capability := strings.TrimSpace(out)
	require.NotEmpty(t, capability)

	out, err = execute(t, nil, "get", "--addr", ts.addr, "--format", "json", "qwed")
	require.NoError(t, err)
	var resp struct {
		Status string    `json:"status"`
		Data   GetResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "qwed", resp.Data.Pattern)
	assert.Equal(t, map[string]any{
		document.TypeKey: "hexcasting:double",
		document.DataKey: float64(42),
	}, resp.Data.Document)

	rawPath := filepath.Join(t.TempDir(), "out.bin")
	_, err = execute(t, nil, "get", "--addr", ts.addr, "qwed", "--out", rawPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	assert.Equal(t, payload, raw)

	out, err = execute(t, nil, "delete", "--addr", ts.addr, "qwed", capability)
	require.NoError(t, err)
	assert.Equal(t, "deleted qwed\n", out)

	out, err = execute(t, nil, "get", "--addr", ts.addr, "qwed")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E500]")
}

func TestCommands_PutEntityFromStdin(t *testing.T) {
	ts := startServe(t)
	entity := document.Marshal(document.New("hexcasting:entity", document.Compound{
		document.C("uuid", document.IntArray{1, 2, 3, 4}),
	}))

	out, err := execute(t, entity, "put", "--addr", ts.addr, "--format", "yaml", "aqa", "-")
	require.NoError(t, err)
	var resp struct {
		Data PutResult `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Sanitized)
	assert.Equal(t, "aqa", resp.Data.Pattern)

	out, err = execute(t, nil, "get", "--addr", ts.addr, "aqa")
	require.NoError(t, err)
	assert.Contains(t, out, "hexcasting:garbage")
	assert.NotContains(t, out, "uuid")
}

func TestCommands_DeleteWrongCapabilityLeavesRecord(t *testing.T) {
	ts := startServe(t)
	payload := document.Marshal(document.NewGarbage("hexcasting"))

	_, err := execute(t, nil, "put", "--addr", ts.addr, "sd", writeFile(t, payload))
	require.NoError(t, err)

	_, err = execute(t, nil, "delete", "--addr", ts.addr, "sd", "AAAA")
	require.NoError(t, err)

	_, err = execute(t, nil, "get", "--addr", ts.addr, "sd")
	assert.NoError(t, err)
}

func TestCommands_GenAndDump(t *testing.T) {
	ts := startServe(t)

	out, err := execute(t, nil, "gen", "--addr", ts.addr, "--count", "5", "--seed", "11", "--format", "json")
	require.NoError(t, err)
	var gen struct {
		Data []PutResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &gen))
	require.Len(t, gen.Data, 5)

	out, err = execute(t, nil, "dump", "--db", ts.db, "--format", "yaml")
	require.NoError(t, err)
	var dump struct {
		Status string       `yaml:"status"`
		Data   []DumpRecord `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &dump))
	assert.Equal(t, "ok", dump.Status)
	assert.NotEmpty(t, dump.Data)
	for _, rec := range dump.Data {
		assert.NotEmpty(t, rec.Tag)
		assert.NotEqual(t, "hexcasting:entity", rec.Tag)
	}

	out, err = execute(t, nil, "dump", "--db", ts.db)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), len(dump.Data))
}

func TestCommands_GenDryRun(t *testing.T) {
	first, err := execute(t, nil, "gen", "--dry-run", "--seed", "5")
	require.NoError(t, err)
	second, err := execute(t, nil, "gen", "--dry-run", "--seed", "5")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed gives the same iota")
	_, err = document.UnmarshalDocument([]byte(first))
	assert.NoError(t, err)
}

func TestCommands_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid pattern", []string{"put", "--addr", "127.0.0.1:1", "xyz", "-"}, "invalid pattern"},
		{"bad capability", []string{"delete", "--addr", "127.0.0.1:1", "qwe", "!!"}, "base64"},
		{"missing file", []string{"put", "--addr", "127.0.0.1:1", "qwe", "/no/such/file"}, "failed to read payload"},
		{"zero count", []string{"gen", "--count", "0"}, "--count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, []byte{}, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestCommands_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = execute(t, nil, "get", "--addr", addr, "qwe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := execute(t, nil, "serve", "--listen", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_UnopenableDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "dir", "hex.db")

	_, err := execute(t, nil, "serve", "--db", dbPath, "--listen", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_LogsStartup(t *testing.T) {
	ts := startServe(t)
	require.Eventually(t, func() bool {
		return strings.Contains(ts.log.String(), "database ready")
	}, 5*time.Second, 10*time.Millisecond)
}
