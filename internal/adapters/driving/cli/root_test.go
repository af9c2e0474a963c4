package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "sercha-intel", rootCmd.Use)
	assert.Contains(t, rootCmd.Long, "SERCHA_INTEL_<PROVIDER>_API_KEY")
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"providers", "enrich", "sync", "watermark", "serve", "settings", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_BootstrapReceivesFlags(t *testing.T) {
	setServices(t, nil)
	defer logger.SetVerbose(false)

	var got Options
	closed := false
	SetBootstrap(func(opts Options) (*Services, error) {
		got = opts
		return &Services{
			Registry: &mockRegistry{},
			Close: func() error {
				closed = true
				return nil
			},
		}, nil
	})

	_, err := execute(t, "--config-dir", "/tmp/intel-test", "--verbose", "providers")

	require.NoError(t, err)
	assert.Equal(t, Options{ConfigDir: "/tmp/intel-test", Verbose: true}, got)
	assert.True(t, logger.IsVerbose())
	assert.True(t, closed)
}

func TestRootCmd_BootstrapError(t *testing.T) {
	setServices(t, nil)
	SetBootstrap(func(Options) (*Services, error) {
		return nil, errors.New("open store: locked")
	})

	_, err := execute(t, "providers")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open store: locked")
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	setServices(t, nil)
	called := false
	SetBootstrap(func(Options) (*Services, error) {
		called = true
		return nil, errors.New("should not run")
	})

	_, err := execute(t, "version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestRootCmd_InvalidOutputFormat(t *testing.T) {
	setServices(t, &Services{Registry: &mockRegistry{}})

	_, err := execute(t, "--output", "yaml", "providers")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --output")
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
