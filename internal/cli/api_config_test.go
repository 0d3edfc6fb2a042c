package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-cli/internal/configstore"
)

func TestAPIUseKeepsOtherSettings(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "commitlens", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("page_size: 50\n"), 0o600))

	stdout, stderr, err := runCLIArgs(t, "api", "use", "local")
	require.NoErrorf(t, err, "stderr:\n%s", stderr)

	var out envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, configstore.DefaultLocalAPIURL, out.Data["apiUrl"])
	assert.NotContains(t, out.Meta, "warning")

	st, err := configstore.Load(path)
	require.NoError(t, err)
	assert.Equal(t, configstore.DefaultLocalAPIURL, st.APIURL)
	assert.Equal(t, 50, st.PageSize)

	stdout, _, err = runCLIArgs(t, "api", "show")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, configstore.DefaultLocalAPIURL, out.Data["apiUrl"])
	assert.EqualValues(t, 50, out.Data["pageSize"])
	assert.Equal(t, true, out.Meta["stored"])
}

func TestAPIUseWarnsAboutEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("COMMITLENS_API_URL", "http://127.0.0.1:9999")

	stdout, _, err := runCLIArgs(t, "api", "use", "prod")
	require.NoError(t, err)
	var out envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, configstore.DefaultProdAPIURL, out.Data["apiUrl"])
	assert.Equal(t, "unset COMMITLENS_API_URL", out.Meta["unsetEnv"])
}

func TestAPIUseRejectsNonHTTP(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLIArgs(t, "api", "use", "ftp://example.com")
	require.Error(t, err)
	var out envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "invalid_input", out.Error.Code)
}

func TestVersion(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLIArgs(t, "version")
	require.NoError(t, err)
	var out envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.NotEmpty(t, out.Data["version"])
	assert.NotEmpty(t, out.Data["goVersion"])
	assert.True(t, strings.HasPrefix(out.Meta["userAgent"].(string), "commitlens-cli/"))
}

func TestUnknownFormatFails(t *testing.T) {
	isolate(t)

	_, _, err := runCLIArgs(t, "--format", "xml", "version")
	require.Error(t, err)
}
