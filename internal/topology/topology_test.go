package topology

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"shardback/internal/config"
	"shardback/internal/sb"
	"shardback/internal/testutil"
)

func TestRemoteTopology_ListNodes(t *testing.T) {
	const resolved = "ringstore-admin nodes list --role storage-server --quiet"

	runner := testutil.NewScriptedRunner()
	runner.Script(resolved, "node2\n\n# headers from older admin builds\n  node1  \nnode3\nnode1\n", nil)

	topo := NewRemoteTopology(runner, "store-sup01",
		"ringstore-admin nodes list --role {role} --quiet", sb.NewNopLogger())

	nodes, err := topo.ListNodes(context.Background(), "storage-server")
	if err != nil {
		t.Fatalf("ListNodes() error = %v", err)
	}
	if want := []string{"node1", "node2", "node3"}; !reflect.DeepEqual(nodes, want) {
		t.Errorf("ListNodes() = %v, want %v", nodes, want)
	}

	// The role placeholder is resolved and the command runs on the
	// entry host.
	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(calls))
	}
	if calls[0].Host != "store-sup01" {
		t.Errorf("command host = %q, want store-sup01", calls[0].Host)
	}
	if calls[0].Command != resolved {
		t.Errorf("command = %q, want %q", calls[0].Command, resolved)
	}
}

func TestRemoteTopology_ListNodes_Error(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	runner.Script("ringstore-admin nodes list", "", errors.New("unknown subcommand"))

	topo := NewRemoteTopology(runner, "store-sup01", "ringstore-admin nodes list", sb.NewNopLogger())

	_, err := topo.ListNodes(context.Background(), "storage-server")
	if err == nil {
		t.Fatal("ListNodes() error = nil, want discovery failure")
	}
	if !strings.Contains(err.Error(), "listing nodes on store-sup01") {
		t.Errorf("error = %v, want host context", err)
	}
}

func TestStaticTopology_ListNodes(t *testing.T) {
	topo := NewStaticTopology([]string{"node2", "node1"})

	nodes, err := topo.ListNodes(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("ListNodes() error = %v", err)
	}
	if want := []string{"node1", "node2"}; !reflect.DeepEqual(nodes, want) {
		t.Errorf("ListNodes() = %v, want %v", nodes, want)
	}

	// Callers get a copy, not the config-backed slice.
	nodes[0] = "mutated"
	again, err := topo.ListNodes(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("ListNodes() error = %v", err)
	}
	if again[0] != "node1" {
		t.Errorf("ListNodes() after mutation = %v, want unchanged source", again)
	}
}

func TestNewTopologyFromConfig(t *testing.T) {
	runner := testutil.NewScriptedRunner()
	logger := sb.NewNopLogger()

	tests := []struct {
		name    string
		cfg     config.ClusterConfig
		want    any
		wantErr bool
	}{
		{
			name: "static",
			cfg:  config.ClusterConfig{Topology: "static", Nodes: []string{"node1"}},
			want: &StaticTopology{},
		},
		{
			name:    "static without nodes",
			cfg:     config.ClusterConfig{Topology: "static"},
			wantErr: true,
		},
		{
			name: "remote",
			cfg: config.ClusterConfig{
				Topology:         "remote",
				Host:             "store-sup01",
				ListNodesCommand: "ringstore-admin nodes list --role {role}",
			},
			want: &RemoteTopology{},
		},
		{
			name:    "remote without command",
			cfg:     config.ClusterConfig{Topology: "remote", Host: "store-sup01"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cfg:     config.ClusterConfig{Topology: "gossip"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := NewTopologyFromConfig(&tt.cfg, runner, logger)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewTopologyFromConfig() error = nil, want failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTopologyFromConfig() error = %v", err)
			}
			if got, want := reflect.TypeOf(topo), reflect.TypeOf(tt.want); got != want {
				t.Errorf("NewTopologyFromConfig() = %v, want %v", got, want)
			}
		})
	}
}
