package testutil

import (
	"context"
	"fmt"
	"sync"

	"shardback/internal/sb"
)

// RunnerCall records one remote command invocation.
type RunnerCall struct {
	Host    string
	Command string
}

type response struct {
	output []byte
	err    error
}

// ScriptedRunner returns canned output per command and records every
// call in order. Responses are keyed by command; a per-host override
// takes precedence, so one node can fail while its siblings succeed.
// Safe for concurrent use.
type ScriptedRunner struct {
	mu            sync.Mutex
	calls         []RunnerCall
	byCommand     map[string]response
	byHostCommand map[string]response
}

// NewScriptedRunner creates a ScriptedRunner with no responses. Calls
// for commands that were never scripted fail loudly.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		byCommand:     make(map[string]response),
		byHostCommand: make(map[string]response),
	}
}

// Script sets the response for a command on any host.
func (r *ScriptedRunner) Script(command, output string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCommand[command] = response{output: []byte(output), err: err}
}

// ScriptHost sets the response for a command on one specific host,
// overriding Script for that host.
func (r *ScriptedRunner) ScriptHost(host, command, output string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHostCommand[host+"\x00"+command] = response{output: []byte(output), err: err}
}

func (r *ScriptedRunner) Run(_ context.Context, host, command string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, RunnerCall{Host: host, Command: command})
	resp, ok := r.byHostCommand[host+"\x00"+command]
	if !ok {
		resp, ok = r.byCommand[command]
	}
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no scripted response for %q on %s", command, host)
	}
	return resp.output, resp.err
}

// Calls returns a copy of all recorded calls in invocation order.
func (r *ScriptedRunner) Calls() []RunnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunnerCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// HostsFor returns the hosts the given command ran on, in invocation order.
func (r *ScriptedRunner) HostsFor(command string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hosts []string
	for _, c := range r.calls {
		if c.Command == command {
			hosts = append(hosts, c.Host)
		}
	}
	return hosts
}

// Compile-time check
var _ sb.Runner = (*ScriptedRunner)(nil)
