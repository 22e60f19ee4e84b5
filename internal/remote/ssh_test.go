package remote

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"shardback/internal/sb"
)

// fakeSSH puts an executable shell script named ssh at the front of
// PATH for the duration of the test.
func fakeSSH(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ssh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("writing fake ssh: %v", err)
	}
	t.Setenv("PATH", dir)
}

func TestSSHRunner_Run(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	fakeSSH(t, `printf '%s\n' "$@" > `+argsFile+`; echo "ringstore"`)

	runner := NewSSHRunner([]string{"-i", "/etc/shardback/key"}, sb.NewNopLogger())
	out, err := runner.Run(context.Background(), "node1", "stat -c %U /var/lib/ringstore/objects")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := string(out); got != "ringstore\n" {
		t.Errorf("Run() output = %q, want %q", got, "ringstore\n")
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("reading recorded args: %v", err)
	}
	got := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	// BatchMode comes first so it cannot be overridden, and the remote
	// command travels as a single argument.
	want := []string{
		"-o", "BatchMode=yes",
		"-i", "/etc/shardback/key",
		"node1",
		"stat -c %U /var/lib/ringstore/objects",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ssh args = %q, want %q", got, want)
	}
}

func TestSSHRunner_Run_Failure(t *testing.T) {
	fakeSSH(t, `echo "Permission denied (publickey)." >&2; exit 255`)

	runner := NewSSHRunner(nil, sb.NewNopLogger())
	_, err := runner.Run(context.Background(), "node1", "true")
	if err == nil {
		t.Fatal("Run() error = nil, want ssh failure")
	}
	if !strings.Contains(err.Error(), "ssh node1") {
		t.Errorf("error = %v, want host context", err)
	}
	if !strings.Contains(err.Error(), "Permission denied") {
		t.Errorf("error = %v, want remote stderr detail", err)
	}
}
