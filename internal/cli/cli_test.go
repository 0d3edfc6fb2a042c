package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-cli/internal/cli"
	"github.com/commitlens/commitlens-cli/internal/mock"
)

type envelope struct {
	OK    bool           `json:"ok"`
	Meta  map[string]any `json:"meta"`
	Data  map[string]any `json:"data"`
	Hint  string         `json:"hint"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func runCLIArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// isolate points every path the CLI touches into a temp dir and clears the
// COMMITLENS_* variables a developer may have exported.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("COMMITLENS_AUTH_STORE", filepath.Join(tmp, "credentials.json"))
	t.Setenv("COMMITLENS_HTTP_RETRY_ENABLED", "false")
	for _, k := range []string{"COMMITLENS_TOKEN", "COMMITLENS_API_URL", "COMMITLENS_FORMAT", "COMMITLENS_CONFIG", "COMMITLENS_PAGE_SIZE", "COMMITLENS_LOG_FILE", "COMMITLENS_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return tmp
}

// newMockAPI serves a freshly seeded in-memory backend.
func newMockAPI(t *testing.T, opts ...func(*mock.Server)) string {
	t.Helper()
	srv, err := mock.NewServer(mock.Store{}, nil)
	require.NoError(t, err)
	for _, o := range opts {
		o(srv)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes the CLI against api and decodes the JSON envelope.
func run(t *testing.T, api string, args ...string) (envelope, error) {
	t.Helper()
	stdout, stderr, err := runCLIArgs(t, append([]string{"--api", api}, args...)...)
	var env envelope
	require.NoErrorf(t, json.Unmarshal([]byte(stdout), &env), "stdout:\n%s\nstderr:\n%s", stdout, stderr)
	return env, err
}

func mustRun(t *testing.T, api string, args ...string) envelope {
	t.Helper()
	env, err := run(t, api, args...)
	require.NoError(t, err)
	require.Truef(t, env.OK, "expected ok envelope, got %+v", env.Error)
	return env
}

func items(t *testing.T, env envelope) []map[string]any {
	t.Helper()
	raw, ok := env.Data["items"].([]any)
	require.True(t, ok, "data.items missing")
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

// idOf returns the id of the single item a search finds.
func idOf(t *testing.T, api, kind, search string) string {
	t.Helper()
	env := mustRun(t, api, kind, "list", "--search", search)
	rows := items(t, env)
	require.Len(t, rows, 1, "search %q in %s", search, kind)
	return rows[0]["id"].(string)
}
