package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"shardback/internal/sb"
)

// exitVanished is rsync's exit code for source files that disappeared
// mid-transfer. Objects legitimately vanish while maintenance is
// suspended (clients still delete things), so it downgrades to a
// warning instead of failing the node.
const exitVanished = 24

// RsyncTransfer pulls object files with the system rsync binary. Each
// job reads its work list via --files-from, compares by size only
// (replica mtimes are not trustworthy), and hard-links unchanged
// objects out of the baseline generation when one is available.
type RsyncTransfer struct {
	rsyncPath  string
	sshOptions []string
	bwLimit    string
	logger     sb.Logger
}

// NewRsyncTransfer creates a transfer around the given rsync binary; an
// empty path means whatever "rsync" resolves to on PATH.
func NewRsyncTransfer(rsyncPath string, sshOptions []string, bwLimit string, logger sb.Logger) *RsyncTransfer {
	if rsyncPath == "" {
		rsyncPath = "rsync"
	}
	return &RsyncTransfer{
		rsyncPath:  rsyncPath,
		sshOptions: sshOptions,
		bwLimit:    bwLimit,
		logger:     logger,
	}
}

// Preflight verifies the rsync binary exists and executes before the
// run touches any cluster node.
func (t *RsyncTransfer) Preflight(ctx context.Context) error {
	path, err := exec.LookPath(t.rsyncPath)
	if err != nil {
		return fmt.Errorf("rsync not found: %w", err)
	}
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return fmt.Errorf("running %s --version: %w", path, err)
	}
	version := ""
	if lines := strings.SplitN(string(out), "\n", 2); len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}
	t.logger.Debug("transfer preflight ok", "rsync", version)
	return nil
}

// Sync runs one pull job to completion.
func (t *RsyncTransfer) Sync(ctx context.Context, job sb.TransferJob) error {
	if err := os.MkdirAll(job.DestPath, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	args := []string{
		"-a",
		"--files-from=" + job.ListPath,
		"--size-only",
		// Work lists are a snapshot of the routes; files already gone
		// by transfer time are not an error.
		"--ignore-missing-args",
	}
	if job.Baseline != "" {
		args = append(args, "--link-dest="+job.Baseline)
	}
	if t.bwLimit != "" {
		args = append(args, "--bwlimit="+t.bwLimit)
	}
	ssh := "ssh -o BatchMode=yes"
	if len(t.sshOptions) > 0 {
		ssh += " " + strings.Join(t.sshOptions, " ")
	}
	args = append(args, "-e", ssh)

	source := job.SourceHost + ":" + strings.TrimSuffix(job.SourcePath, "/") + "/"
	if job.SourceUser != "" {
		source = job.SourceUser + "@" + source
	}
	args = append(args, source, job.DestPath)

	cmd := exec.CommandContext(ctx, t.rsyncPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.logger.Debug("rsync started", "source", source, "dest", job.DestPath, "baseline", job.Baseline)
	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitVanished {
		t.logger.Warn("objects vanished during transfer", "host", job.SourceHost)
		return nil
	}
	if detail := strings.TrimSpace(stderr.String()); detail != "" {
		return fmt.Errorf("rsync from %s: %w: %s", job.SourceHost, err, detail)
	}
	return fmt.Errorf("rsync from %s: %w", job.SourceHost, err)
}

// Compile-time check that RsyncTransfer implements sb.Transfer.
var _ sb.Transfer = (*RsyncTransfer)(nil)
