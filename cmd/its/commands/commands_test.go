package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joggienl/itslanguage-go/pkg/history"
	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	oldStdout, oldStderr := os.Stdout, os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout, os.Stderr = wOut, wErr

	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout, os.Stderr = oldStdout, oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)
	return outBuf.String(), errBuf.String(), err
}

func configPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestConfigCommands(t *testing.T) {
	cfg := configPath(t)

	out, _, err := runCmd(t, "--config", cfg, "config", "add-context", "prod", "--token", "abcdefgh12345678")
	require.NoError(t, err)
	assert.Contains(t, out, `Context "prod" added`)

	_, _, err = runCmd(t, "--config", cfg, "config", "add-context", "staging",
		"--principal", "admin", "--credentials", "pw", "--api-url", "https://staging.example.com")
	require.NoError(t, err)

	_, _, err = runCmd(t, "--config", cfg, "config", "add-context", "broken")
	assert.Error(t, err)

	out, _, err = runCmd(t, "--config", cfg, "config", "list-contexts")
	require.NoError(t, err)
	assert.Contains(t, out, "prod")
	assert.Contains(t, out, "oauth2")
	assert.Contains(t, out, "basic:admin")
	assert.Contains(t, out, "https://staging.example.com")

	_, _, err = runCmd(t, "--config", cfg, "config", "use-context", "staging")
	require.NoError(t, err)
	out, _, err = runCmd(t, "--config", cfg, "config", "get-context")
	require.NoError(t, err)
	assert.Equal(t, "staging\n", out)

	out, _, err = runCmd(t, "--config", cfg, "config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "abcd********5678")
	assert.NotContains(t, out, "abcdefgh12345678")

	_, _, err = runCmd(t, "--config", cfg, "config", "delete-context", "staging")
	require.NoError(t, err)
	out, _, err = runCmd(t, "--config", cfg, "config", "get-context")
	require.NoError(t, err)
	assert.Contains(t, out, "No current context")
}

// fakeServer serves the few API routes the command tests use.
func fakeServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+token
	}

	mux.HandleFunc("GET /organisations/fb", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"id": "fb", "name": "Foo Bar"})
	})
	mux.HandleFunc("GET /organisations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": "fb", "name": "Foo Bar"}, {"id": "qx", "name": "Qux"}})
	})
	mux.HandleFunc("GET /challenges/speech/4/recordings/rec-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":        "rec-1",
			"studentId": "s1",
			"audioUrl":  srv.URL + "/download/rec-1",
		})
	})
	mux.HandleFunc("GET /download/rec-1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("RIFF....WAVE"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOrganisationGetWithEnvOverride(t *testing.T) {
	srv := fakeServer(t, "tok")
	cfg := configPath(t)

	_, _, err := runCmd(t, "--config", cfg, "config", "add-context", "prod", "--token", "wrong")
	require.NoError(t, err)

	t.Setenv("ITS_API_URL", srv.URL)
	t.Setenv("ITS_OAUTH2_TOKEN", "tok")

	out, _, err := runCmd(t, "--config", cfg, "organisation", "get", "fb", "--json", "--query", ".name")
	require.NoError(t, err)
	assert.Equal(t, "\"Foo Bar\"\n", out)
}

func TestEnvOnlyContext(t *testing.T) {
	srv := fakeServer(t, "tok")
	t.Setenv("ITS_API_URL", srv.URL)
	t.Setenv("ITS_OAUTH2_TOKEN", "tok")

	out, _, err := runCmd(t, "--config", configPath(t), "organisation", "list", "--format", "raw", "--query", ".[].id")
	require.NoError(t, err)
	assert.Equal(t, "fb\nqx\n", out)
}

func TestNoContext(t *testing.T) {
	_, _, err := runCmd(t, "--config", configPath(t), "organisation", "list")
	assert.ErrorContains(t, err, "no context specified")

	_, _, err = runCmd(t, "--config", configPath(t), "-c", "missing", "organisation", "list")
	assert.ErrorContains(t, err, `context "missing" not found`)
}

func TestRecordingDownload(t *testing.T) {
	srv := fakeServer(t, "tok")
	cfg := configPath(t)
	dest := t.TempDir()

	_, _, err := runCmd(t, "--config", cfg, "config", "add-context", "prod", "--token", "tok", "--api-url", srv.URL)
	require.NoError(t, err)

	out, _, err := runCmd(t, "--config", cfg, "recording", "download", "fb", "4", "rec-1", "--dest", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "12 B")

	data, err := os.ReadFile(filepath.Join(dest, "fb", "4", "rec-1.wav"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF....WAVE", string(data))

	file := filepath.Join(t.TempDir(), "answer.wav")
	_, _, err = runCmd(t, "--config", cfg, "recording", "download", "fb", "4", "rec-1", "-o", file)
	require.NoError(t, err)
	data, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....WAVE", string(data))
}

func TestRecordingHistory(t *testing.T) {
	cfg := configPath(t)
	dir := filepath.Join(t.TempDir(), "history")

	_, _, err := runCmd(t, "--config", cfg, "config", "add-context", "prod", "--token", "tok", "--history-dir", dir)
	require.NoError(t, err)

	store, err := history.NewBadger(history.BadgerOptions{Dir: dir})
	require.NoError(t, err)
	for _, id := range []string{"rec-1", "rec-2"} {
		require.NoError(t, store.Put(context.Background(), &itslanguage.SpeechRecording{
			ID:          id,
			ChallengeID: "4",
			Student:     itslanguage.Student{OrganisationID: "fb"},
		}))
	}
	require.NoError(t, store.Close())

	out, _, err := runCmd(t, "--config", cfg, "recording", "history", "fb", "--format", "raw", "--query", ".[].id")
	require.NoError(t, err)
	assert.Equal(t, "rec-1\nrec-2\n", out)

	out, _, err = runCmd(t, "--config", cfg, "recording", "history", "fb", "4", "--forget")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 recordings")

	out, _, err = runCmd(t, "--config", cfg, "recording", "history", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}
