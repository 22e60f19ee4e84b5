package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		HostID:  "test-host-abc",
		BaseDir: "/data/shardback",
		LogDir:  "/data/shardback/log",
		Cluster: ClusterConfig{
			Host:                  "store-sup01",
			Clustered:             true,
			Role:                  "storage-server",
			Topology:              "static",
			Nodes:                 []string{"node1", "node2"},
			StorePath:             "/var/lib/ringstore/objects",
			DefaultOwner:          "ringstore",
			SSHOptions:            []string{"-i", "/keys/backup"},
			RouteDumpCommand:      "ringstore-admin routes dump --compress",
			MaintenanceOffCommand: "ringstore-admin maintenance suspend",
			MaintenanceOnCommand:  "ringstore-admin maintenance resume",
		},
		Snapshots:    SnapshotsConfig{Root: "/snapshots"},
		Transfer:     TransferConfig{RsyncPath: "/usr/bin/rsync", BandwidthLimit: "10000"},
		Verification: VerificationConfig{Skip: true, ObjectDepth: 6},
		Database:     DatabaseConfig{Type: "sqlite", DataDir: "/data/shardback/db"},
		Audit:        AuditConfig{Type: "filesystem", Dir: "/snapshots/audit"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Cluster.Host != "store-sup01" {
		t.Errorf("Cluster.Host = %q, want %q", got.Cluster.Host, "store-sup01")
	}
	if !got.Cluster.Clustered {
		t.Error("Cluster.Clustered = false, want true")
	}
	if got.Cluster.Topology != "static" {
		t.Errorf("Cluster.Topology = %q, want %q", got.Cluster.Topology, "static")
	}
	if len(got.Cluster.Nodes) != 2 {
		t.Fatalf("len(Cluster.Nodes) = %d, want 2", len(got.Cluster.Nodes))
	}
	if len(got.Cluster.SSHOptions) != 2 {
		t.Fatalf("len(Cluster.SSHOptions) = %d, want 2", len(got.Cluster.SSHOptions))
	}
	if got.Cluster.RouteDumpCommand != original.Cluster.RouteDumpCommand {
		t.Errorf("Cluster.RouteDumpCommand = %q, want %q", got.Cluster.RouteDumpCommand, original.Cluster.RouteDumpCommand)
	}
	if got.Snapshots.Root != "/snapshots" {
		t.Errorf("Snapshots.Root = %q, want %q", got.Snapshots.Root, "/snapshots")
	}
	if got.Transfer.BandwidthLimit != "10000" {
		t.Errorf("Transfer.BandwidthLimit = %q, want %q", got.Transfer.BandwidthLimit, "10000")
	}
	if !got.Verification.Skip {
		t.Error("Verification.Skip = false, want true")
	}
	if got.Verification.ObjectDepth != 6 {
		t.Errorf("Verification.ObjectDepth = %d, want 6", got.Verification.ObjectDepth)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Audit.Type != "filesystem" {
		t.Errorf("Audit.Type = %q, want %q", got.Audit.Type, "filesystem")
	}
	if got.Audit.Dir != "/snapshots/audit" {
		t.Errorf("Audit.Dir = %q, want %q", got.Audit.Dir, "/snapshots/audit")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/shardback")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.BaseDir != "/data/shardback" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/shardback")
	}
	if cfg.LogDir != "/data/shardback/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/shardback/log")
	}
	if cfg.Snapshots.Root != "/data/shardback/snapshots" {
		t.Errorf("Snapshots.Root = %q, want %q", cfg.Snapshots.Root, "/data/shardback/snapshots")
	}
	if !cfg.Cluster.Clustered {
		t.Error("Cluster.Clustered = false, want true")
	}
	if cfg.Cluster.Role != "storage-server" {
		t.Errorf("Cluster.Role = %q, want %q", cfg.Cluster.Role, "storage-server")
	}
	if cfg.Cluster.Topology != "remote" {
		t.Errorf("Cluster.Topology = %q, want %q", cfg.Cluster.Topology, "remote")
	}
	if cfg.Cluster.MaintenanceOnCommand == "" {
		t.Error("Cluster.MaintenanceOnCommand is empty")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "sqlite")
	}
	if cfg.Audit.Type != "none" {
		t.Errorf("Audit.Type = %q, want %q", cfg.Audit.Type, "none")
	}
}

func TestRead_AppliesDefaults(t *testing.T) {
	t.Run("derives paths from base_dir", func(t *testing.T) {
		raw := `
host_id = "h1"
base_dir = "/data/shardback"

[cluster]
host = "store-sup01"
`
		m := &Manager{}
		got, err := m.Read(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}

		if got.LogDir != "/data/shardback/log" {
			t.Errorf("LogDir = %q, want %q", got.LogDir, "/data/shardback/log")
		}
		if got.Snapshots.Root != "/data/shardback/snapshots" {
			t.Errorf("Snapshots.Root = %q, want %q", got.Snapshots.Root, "/data/shardback/snapshots")
		}
		if got.Database.Type != "sqlite" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
		}
		if got.Database.DataDir != "/data/shardback/db" {
			t.Errorf("Database.DataDir = %q, want %q", got.Database.DataDir, "/data/shardback/db")
		}
		if got.Cluster.Role != "storage-server" {
			t.Errorf("Cluster.Role = %q, want %q", got.Cluster.Role, "storage-server")
		}
	})

	t.Run("infers static topology from node list", func(t *testing.T) {
		raw := `
host_id = "h1"
base_dir = "/data/shardback"

[cluster]
host = "store-sup01"
nodes = ["node1", "node2"]
`
		m := &Manager{}
		got, err := m.Read(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.Cluster.Topology != "static" {
			t.Errorf("Cluster.Topology = %q, want %q", got.Cluster.Topology, "static")
		}
	})

	t.Run("defaults to remote topology without nodes", func(t *testing.T) {
		raw := `
host_id = "h1"
base_dir = "/data/shardback"

[cluster]
host = "store-sup01"
`
		m := &Manager{}
		got, err := m.Read(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.Cluster.Topology != "remote" {
			t.Errorf("Cluster.Topology = %q, want %q", got.Cluster.Topology, "remote")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	// validConfig builds the smallest config Validate accepts.
	validConfig := func() *Config {
		cfg := NewConfig("host-1", "/data/shardback")
		cfg.Cluster.Host = "store-sup01"
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host_id", func(c *Config) { c.HostID = "" }},
		{"missing base_dir", func(c *Config) { c.BaseDir = "" }},
		{"missing cluster host", func(c *Config) { c.Cluster.Host = "" }},
		{"missing store path", func(c *Config) { c.Cluster.StorePath = "" }},
		{"missing route dump command", func(c *Config) { c.Cluster.RouteDumpCommand = "" }},
		{"missing maintenance off command", func(c *Config) { c.Cluster.MaintenanceOffCommand = "" }},
		{"missing maintenance on command", func(c *Config) { c.Cluster.MaintenanceOnCommand = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shardback.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shardback.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shardback.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/shardback.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
