package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/mongograph/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCompileSDL(t *testing.T) {
	out, err := execute(t, "compile-sdl", "testdata/models.yaml")
	require.NoError(t, err)
	for _, want := range []string{
		"type User {",
		"type Post {",
		"userFindById(",
		"postFindMany(",
		"userCreateOne(",
		"enum EnumUserGender {",
		"input FilterFindManyPostInput {",
		"scalar MongoID",
	} {
		require.Contains(t, out, want)
	}
}

func TestCompileSDLToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "schema.graphql")
	out, err := execute(t, "compile-sdl", "--out", file, "testdata/models.yaml")
	require.NoError(t, err)
	require.Empty(t, out)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "type Query {")
}

func TestCompileSDLModelsFromEnv(t *testing.T) {
	t.Setenv(config.Prefix+"MODELS", "testdata/models.yaml")
	out, err := execute(t, "compile-sdl")
	require.NoError(t, err)
	require.Contains(t, out, "type Post {")
}

func TestCompileSDLErrors(t *testing.T) {
	t.Setenv(config.Prefix+"MODELS", "")
	_, err := execute(t, "compile-sdl")
	require.EqualError(t, err, "no model files given")

	_, err = execute(t, "compile-sdl", "testdata/missing.yaml")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestServeRequiresModels(t *testing.T) {
	t.Setenv(config.Prefix+"MODELS", "")
	_, err := execute(t, "serve", "--health-addr", "")
	require.EqualError(t, err, "no model files given")
}

func TestWithEnvKeepsExplicitFlags(t *testing.T) {
	t.Setenv(config.Prefix+"ADDR", ":7000")
	t.Setenv(config.Prefix+"DATABASE", "fromenv")

	cmd := newServeCommand(&rootOptions{})
	require.NoError(t, cmd.Flags().Parse([]string{"--database", "fromflag"}))
	var cfg config.Config
	cfg.Database = "fromflag"
	cfg = withEnv(cmd.Flags(), cfg, config.FromEnv())
	require.Equal(t, ":7000", cfg.Addr)
	require.Equal(t, "fromflag", cfg.Database)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	ok := healthz(pingFunc(func(context.Context) error { return nil }), time.Second)
	w := httptest.NewRecorder()
	ok(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	down := healthz(pingFunc(func(context.Context) error { return errors.New("no primary") }), time.Second)
	w = httptest.NewRecorder()
	down(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "no primary")
}
