package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "its", "config.yaml")

	cfg, err := LoadConfigWithPath("its", path)
	require.NoError(t, err)
	assert.Equal(t, "its", cfg.AppName)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, filepath.Dir(path), cfg.Dir())
	assert.Empty(t, cfg.Contexts)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigContexts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath("its", path)
	require.NoError(t, err)

	require.NoError(t, cfg.AddContext("prod", &Context{
		APIURL:      "https://api.itslanguage.nl",
		OAuth2Token: "token-prod-1234",
		Timeout:     10,
	}))
	require.NoError(t, cfg.AddContext("staging", &Context{
		APIURL:    "https://staging.itslanguage.nl",
		BasicAuth: &BasicAuthCredentials{Principal: "admin", Credentials: "secret"},
	}))
	assert.Equal(t, "prod", cfg.CurrentContext, "first context becomes current")
	assert.Equal(t, []string{"prod", "staging"}, cfg.ListContexts())

	require.NoError(t, cfg.UseContext("staging"))
	assert.Error(t, cfg.UseContext("missing"))

	reloaded, err := LoadConfigWithPath("its", path)
	require.NoError(t, err)
	assert.Equal(t, "staging", reloaded.CurrentContext)

	cur, err := reloaded.ResolveContext("")
	require.NoError(t, err)
	assert.Equal(t, "staging", cur.Name)
	require.NotNil(t, cur.BasicAuth)
	assert.Equal(t, "admin", cur.BasicAuth.Principal)

	prod, err := reloaded.ResolveContext("prod")
	require.NoError(t, err)
	assert.Equal(t, "token-prod-1234", prod.OAuth2Token)
	assert.Equal(t, 10*time.Second, prod.TimeoutDuration())
	assert.Zero(t, prod.ReadyTimeoutDuration())

	require.NoError(t, reloaded.DeleteContext("staging"))
	assert.Empty(t, reloaded.CurrentContext)
	_, err = reloaded.GetCurrentContext()
	assert.Error(t, err)
	assert.Error(t, reloaded.DeleteContext("staging"))
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contexts: [oops"), 0o600))
	_, err := LoadConfigWithPath("its", path)
	assert.Error(t, err)
}

func TestContextMasked(t *testing.T) {
	ctx := &Context{
		Name:        "prod",
		OAuth2Token: "abcdefghijklmnop",
		BasicAuth:   &BasicAuthCredentials{Principal: "admin", Credentials: "pw"},
	}
	m := ctx.Masked()
	assert.Equal(t, "abcd********mnop", m.OAuth2Token)
	assert.Equal(t, "admin", m.BasicAuth.Principal)
	assert.Equal(t, "**", m.BasicAuth.Credentials)
	assert.Equal(t, "pw", ctx.BasicAuth.Credentials, "original untouched")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "********", MaskSecret("12345678"))
	assert.Equal(t, "1234*5678", MaskSecret("123405678"))
}

func TestPaths(t *testing.T) {
	p := &Paths{AppName: "its", HomeDir: "/home/u"}
	assert.Equal(t, "/home/u/.itslanguage/its/config.yaml", p.ConfigFile())
	assert.Equal(t, "/home/u/.itslanguage/its/data/history", p.HistoryDir())
}
