//go:build linux || darwin

package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script standing in for uname.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "uname")
	//nolint:gosec // G306: test script needs execute permissions
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestUnameProbe(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Libc
	}{
		{"musl userland", `echo Linux`, LibcMusl},
		{"gnu userland", `echo GNU/Linux`, LibcGlibc},
		{"other output", `echo Android`, LibcGlibc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := UnameProbe{Path: writeScript(t, tt.body)}
			got, err := probe.Probe(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnameProbe_Errors(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		probe := UnameProbe{Path: filepath.Join(t.TempDir(), "does-not-exist")}
		_, err := probe.Probe(context.Background())
		assert.Error(t, err)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		probe := UnameProbe{Path: writeScript(t, "exit 3")}
		_, err := probe.Probe(context.Background())
		assert.Error(t, err)
	})
}

func TestDetectLibc_Bounded(t *testing.T) {
	probe := UnameProbe{Path: writeScript(t, "sleep 10; echo Linux")}

	start := time.Now()
	got := DetectLibc(context.Background(), probe, 150*time.Millisecond, zerolog.Nop())

	assert.Equal(t, LibcGlibc, got)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDetectLibc_DefaultTimeout(t *testing.T) {
	probe := &fakeProbe{libc: LibcMusl}
	assert.Equal(t, LibcMusl, DetectLibc(context.Background(), probe, 0, zerolog.Nop()))
}
