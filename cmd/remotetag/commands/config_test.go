package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KarpelesLab/remotetag"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlags(args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(remotetag.DefaultPrefixSize), cfg.PrefixSize)
	assert.Equal(t, int64(remotetag.DefaultSuffixSize), cfg.SuffixSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, 1024, cfg.LogQueue)
}

func TestLoadConfigUnsetFlagsKeepDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.Int64("prefix-size", 1, "")
	fs.Duration("timeout", 0, "")
	require.NoError(t, fs.Parse(nil))

	cfg, err := loadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, int64(remotetag.DefaultPrefixSize), cfg.PrefixSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("REMOTETAG_PREFIX_SIZE", "131072")
	t.Setenv("REMOTETAG_TIMEOUT", "5s")
	t.Setenv("REMOTETAG_QUIET", "true")

	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(131072), cfg.PrefixSize)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Quiet)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remotetag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prefix_size: 1000\nsuffix_size: 200\nlog_queue: 8\n"), 0o644))

	cfg, err := loadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cfg.PrefixSize)
	assert.Equal(t, int64(200), cfg.SuffixSize)
	assert.Equal(t, 8, cfg.LogQueue)
}

func TestLoadConfigMissingFileIgnored(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(remotetag.DefaultPrefixSize), cfg.PrefixSize)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("REMOTETAG_SUFFIX_SIZE", "100")

	cfg, err := loadConfig("", runFlags("--suffix-size=2048", "-q"))
	require.NoError(t, err)

	assert.Equal(t, int64(2048), cfg.SuffixSize)
	assert.True(t, cfg.Quiet)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"negative prefix", "REMOTETAG_PREFIX_SIZE", "-1"},
		{"negative suffix", "REMOTETAG_SUFFIX_SIZE", "-5"},
		{"negative timeout", "REMOTETAG_TIMEOUT", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := loadConfig("", nil)
			assert.Error(t, err)
		})
	}
}

func TestRunHostAnswersMalformedJobs(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	var out, diag bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, runHost(ctx, cfg, bytes.NewBufferString("garbage\n{\"length\":1}\n"), &out, &diag))

	assert.Equal(t, remotetag.ErrorReply+"\n"+remotetag.ErrorReply+"\n", out.String())
	assert.Contains(t, diag.String(), "host: invalid message")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	defer root.SetArgs(nil)

	require.NoError(t, root.Execute())
	assert.Equal(t, "remotetag dev (commit none)\n", out.String())
}
