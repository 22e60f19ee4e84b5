package testutil

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"shardback/internal/sb"
)

// StubTransfer records sync jobs instead of moving bytes. The work list
// of every job is captured at sync time, before the run's workspace is
// torn down. Individual source hosts can be scripted to fail so tests
// can check that one node's failure never cancels its siblings. With
// Materialize set, a successful job creates an empty file per work-list
// entry under the job's destination, which is enough for verification
// to scan.
type StubTransfer struct {
	mu           sync.Mutex
	jobs         []sb.TransferJob
	lists        map[string][]string
	failHosts    map[string]error
	preflightErr error

	Materialize bool
}

func NewStubTransfer() *StubTransfer {
	return &StubTransfer{
		lists:     make(map[string][]string),
		failHosts: make(map[string]error),
	}
}

// FailPreflight makes Preflight return err.
func (t *StubTransfer) FailPreflight(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.preflightErr = err
}

// FailHost makes every Sync pulling from host return err.
func (t *StubTransfer) FailHost(host string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failHosts[host] = err
}

func (t *StubTransfer) Preflight(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.preflightErr
}

func (t *StubTransfer) Sync(_ context.Context, job sb.TransferJob) error {
	objects, readErr := readWorkList(job.ListPath)

	t.mu.Lock()
	t.jobs = append(t.jobs, job)
	if readErr == nil {
		t.lists[job.SourceHost] = objects
	}
	err := t.failHosts[job.SourceHost]
	materialize := t.Materialize
	t.mu.Unlock()

	if readErr != nil {
		return readErr
	}
	if err != nil {
		return err
	}
	if materialize {
		return touchObjects(job.DestPath, objects)
	}
	return nil
}

func readWorkList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening work list: %w", err)
	}
	defer f.Close()

	var objects []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			objects = append(objects, line)
		}
	}
	return objects, sc.Err()
}

// touchObjects fakes a transfer by creating every listed object empty
// under the destination.
func touchObjects(destPath string, objects []string) error {
	for _, obj := range objects {
		dest := filepath.Join(destPath, filepath.FromSlash(obj))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Jobs returns a copy of all recorded sync jobs.
func (t *StubTransfer) Jobs() []sb.TransferJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sb.TransferJob, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// JobFor returns the recorded job pulling from host, or nil.
func (t *StubTransfer) JobFor(host string) *sb.TransferJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.jobs {
		if t.jobs[i].SourceHost == host {
			job := t.jobs[i]
			return &job
		}
	}
	return nil
}

// ListFor returns the work-list objects the job for host was invoked
// with, captured before the run workspace was removed.
func (t *StubTransfer) ListFor(host string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lists[host]...)
}

// Compile-time check
var _ sb.Transfer = (*StubTransfer)(nil)
