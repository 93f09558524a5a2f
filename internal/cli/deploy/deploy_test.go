package deploy

import (
	"bytes"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/config"
	"github.com/coral-mesh/coral-asprof/internal/platform"
)

func TestDescribe(t *testing.T) {
	resources := fstest.MapFS{
		"libasyncProfiler-linux-musl-x86.so": {Data: []byte("lib")},
	}

	musl := platform.BinaryIdentifier{OS: platform.OSLinux, Arch: platform.ArchX86, Libc: platform.LibcMusl}
	mac := platform.BinaryIdentifier{OS: platform.OSMacOS, Arch: platform.ArchX64, Libc: platform.LibcNone}

	infos := describe(resources, musl, mac)
	require.Len(t, infos, 2)

	assert.Equal(t, "libasyncProfiler-linux-musl-x86.so", infos[0].Resource)
	assert.True(t, infos[0].Bundled)
	assert.Equal(t, "musl", infos[0].Libc)

	assert.Equal(t, "libasyncProfiler-macos-x64.so", infos[1].Resource)
	assert.False(t, infos[1].Bundled)
}

func TestPlatformCmd_All(t *testing.T) {
	cmd := NewPlatformCmd(&helpers.GlobalOptions{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--all", "-o", "json"})

	require.NoError(t, cmd.Execute())

	var infos []PlatformInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
	assert.Len(t, infos, len(platform.Supported()))
}

func TestPlatformCmd_BadFormat(t *testing.T) {
	cmd := NewPlatformCmd(&helpers.GlobalOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--all", "-o", "yaml"})

	assert.Error(t, cmd.Execute())
}

func TestStageFlags_Apply(t *testing.T) {
	cmd := NewStageCmd(&helpers.GlobalOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--namespace", "ci", "--no-verify"}))

	var flags stageFlags
	flags.namespace = "ci"
	flags.noVerify = true

	cfg := config.DefaultConfig()
	tempDir := cfg.Staging.TempDir
	flags.apply(cmd, cfg)

	assert.Equal(t, "ci", cfg.Staging.Namespace)
	assert.False(t, cfg.Staging.Verify)
	assert.Equal(t, tempDir, cfg.Staging.TempDir, "unset flags keep config values")
}
