package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"shardback/internal/sb"
)

// SSHRunner executes commands on cluster nodes through the system ssh
// binary. Using the binary instead of an in-process client keeps a
// single auth path shared with the transfer tool, which tunnels over
// the same ssh configuration.
type SSHRunner struct {
	options []string
	logger  sb.Logger
}

// NewSSHRunner creates a runner with extra ssh options, passed through
// verbatim (for example "-i", "/path/to/key"). BatchMode is always
// forced so missing credentials fail fast instead of prompting.
func NewSSHRunner(options []string, logger sb.Logger) *SSHRunner {
	return &SSHRunner{options: options, logger: logger}
}

// Run executes command on host and returns its stdout. A non-zero exit
// carries the captured stderr in the returned error; callers get the
// remote diagnostic without having to re-run anything by hand.
func (r *SSHRunner) Run(ctx context.Context, host string, command string) ([]byte, error) {
	args := []string{"-o", "BatchMode=yes"}
	args = append(args, r.options...)
	args = append(args, host, command)

	cmd := exec.CommandContext(ctx, "ssh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("remote command", "host", host, "command", command)
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("ssh %s: %w: %s", host, err, detail)
		}
		return nil, fmt.Errorf("ssh %s: %w", host, err)
	}
	return stdout.Bytes(), nil
}

// Compile-time check that SSHRunner implements sb.Runner.
var _ sb.Runner = (*SSHRunner)(nil)
