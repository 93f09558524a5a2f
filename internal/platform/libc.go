package platform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/coral-asprof/internal/constants"
)

// DefaultProbeTimeout bounds the libc probe subprocess.
const DefaultProbeTimeout = constants.DefaultProbeTimeout

// LibcProbe inspects the host userland to tell glibc and musl apart.
type LibcProbe interface {
	Probe(ctx context.Context) (Libc, error)
}

// UnameProbe runs `uname -o`. GNU userlands report "GNU/Linux"; busybox on
// musl distributions such as Alpine reports plain "Linux".
type UnameProbe struct {
	// Path overrides the uname binary. Empty means look it up in PATH.
	Path string
}

// Probe implements LibcProbe.
func (p UnameProbe) Probe(ctx context.Context) (Libc, error) {
	path := p.Path
	if path == "" {
		path = "uname"
	}

	cmd := exec.CommandContext(ctx, path, "-o")
	// Don't let an orphaned grandchild holding stdout keep Wait blocked.
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("uname -o: %w", ctxErr)
		}
		return "", fmt.Errorf("uname -o: %w", err)
	}

	return libcFromUname(stdout.String()), nil
}

func libcFromUname(output string) Libc {
	if strings.TrimSpace(output) == "Linux" {
		return LibcMusl
	}
	return LibcGlibc
}

// DetectLibc runs probe under a hard deadline. Any failure, including the
// deadline expiring, yields LibcGlibc.
func DetectLibc(ctx context.Context, probe LibcProbe, timeout time.Duration, logger zerolog.Logger) Libc {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		libc Libc
		err  error
	}
	done := make(chan result, 1)
	go func() {
		libc, err := probe.Probe(probeCtx)
		done <- result{libc: libc, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			logger.Warn().Err(res.err).Msg("Libc probe failed, assuming glibc")
			return LibcGlibc
		}
		if res.libc != LibcMusl && res.libc != LibcGlibc {
			logger.Warn().Str("libc", string(res.libc)).Msg("Libc probe returned unknown variant, assuming glibc")
			return LibcGlibc
		}
		logger.Debug().Str("libc", string(res.libc)).Msg("Libc probe completed")
		return res.libc
	case <-probeCtx.Done():
		logger.Warn().Dur("timeout", timeout).Msg("Libc probe timed out, assuming glibc")
		return LibcGlibc
	}
}
