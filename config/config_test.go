package config

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/lemmi/glubblog/backend/fsbackend"
	"github.com/lemmi/glubblog/backend/sanity"
	"github.com/lemmi/glubblog/cache"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("SANITY_PROJECT_ID", "abc123")
	t.Setenv("SANITY_DATASET", "staging")
	t.Setenv("SANITY_USE_CDN", "true")
	t.Setenv("REDIS_DB", "2")

	c := FromEnv()
	assert.Equal(t, BackendSanity, c.Backend)
	assert.Equal(t, "abc123", c.Sanity.ProjectID)
	assert.Equal(t, "staging", c.Sanity.Dataset)
	assert.Equal(t, sanity.DefaultAPIVersion, c.Sanity.APIVersion)
	assert.True(t, c.Sanity.UseCDN)
	assert.Equal(t, 2, c.RedisDB)
	assert.Equal(t, 60*time.Second, c.Revalidate)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GLUBBLOG_BACKEND", "postgres")

	c := FromEnv()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.Flags(fs)
	c.ServerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--backend", "fs", "--revalidate", "5m", "--bind", ":9000", "--git"}))

	assert.Equal(t, BackendFS, c.Backend)
	assert.Equal(t, 5*time.Minute, c.Revalidate)
	assert.Equal(t, ":9000", c.Bind)
	assert.True(t, c.Git)
}

func TestOpenBackend(t *testing.T) {
	c := FromEnv()
	c.Backend = BackendFS
	c.Prefix = t.TempDir()
	b, closer, err := c.OpenBackend()
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, fsbackend.FS{}, b)

	c.Backend = BackendSanity
	c.Sanity.ProjectID = ""
	_, _, err = c.OpenBackend()
	assert.Error(t, err)

	c.Backend = BackendPostgres
	c.DatabaseURL = ""
	_, _, err = c.OpenBackend()
	assert.Error(t, err)

	c.Backend = "ftp"
	_, _, err = c.OpenBackend()
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	c := FromEnv()
	c.RedisAddr = ""
	s, closer, err := c.OpenStore()
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &cache.Memory{}, s)

	// nothing listens on port 1, so the ping fails before serving
	c.RedisAddr = "127.0.0.1:1"
	_, _, err = c.OpenStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestGetenvInvalid(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	t.Setenv("SANITY_USE_CDN", "yes")
	t.Setenv("REDIS_DB", "two")
	c := FromEnv()
	assert.False(t, c.Sanity.UseCDN)
	assert.Equal(t, 0, c.RedisDB)
	assert.Contains(t, buf.String(), `SANITY_USE_CDN="yes"`)
	assert.Contains(t, buf.String(), `REDIS_DB="two"`)
}

func TestFromEnvRevalidateSecret(t *testing.T) {
	t.Setenv("REVALIDATE_SECRET", "s3cret")
	c := FromEnv()
	assert.Equal(t, "s3cret", c.RevalidateSecret)
	assert.Equal(t, 24*time.Hour, c.Retention)
}

func TestSiteFS(t *testing.T) {
	c := FromEnv()
	f, err := c.SiteFS().Open("templates/post.tmpl")
	require.NoError(t, err)
	f.Close()
}
