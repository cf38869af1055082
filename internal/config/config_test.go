package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(Prefix+"ADDR", ":9000")
	t.Setenv(Prefix+"MODELS", "a.yaml, b.yaml,,")
	t.Setenv(Prefix+"TIMEOUT", "3s")
	t.Setenv(Prefix+"PRETTY", "true")
	t.Setenv(Prefix+"MAX_LIMIT", "50")
	t.Setenv(Prefix+"DEFAULT_LIMIT", "not a number")
	t.Setenv("LOG_LEVEL", "debug")

	c := FromEnv()
	require.Equal(t, ":9000", c.Addr)
	require.Equal(t, []string{"a.yaml", "b.yaml"}, c.Models)
	require.Equal(t, 3*time.Second, c.Timeout)
	require.True(t, c.Pretty)
	require.Equal(t, 50, c.MaxLimit)
	require.Equal(t, 100, c.DefaultLimit)
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, Default().MongoURI, c.MongoURI)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("MONGOGRAPH_TEST_DATABASE=fromfile\nMONGOGRAPH_TEST_KEPT=fromfile\n"), 0o600))
	t.Setenv("MONGOGRAPH_TEST_KEPT", "process")
	t.Cleanup(func() { os.Unsetenv("MONGOGRAPH_TEST_DATABASE") })

	logger, hook := test.NewNullLogger()
	loaded := LoadEnv(logger, file, filepath.Join(dir, "missing.env"))
	require.Equal(t, []string{file}, loaded)
	require.Equal(t, "fromfile", os.Getenv("MONGOGRAPH_TEST_DATABASE"))
	require.Equal(t, "process", os.Getenv("MONGOGRAPH_TEST_KEPT"))
	require.Empty(t, hook.AllEntries())
}
