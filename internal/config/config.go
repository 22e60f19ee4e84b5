package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for shardback.
type Config struct {
	HostID       string             `toml:"host_id"`
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	Cluster      ClusterConfig      `toml:"cluster"`
	Snapshots    SnapshotsConfig    `toml:"snapshots"`
	Transfer     TransferConfig     `toml:"transfer"`
	Verification VerificationConfig `toml:"verification"`
	Database     DatabaseConfig     `toml:"database"`
	Audit        AuditConfig        `toml:"audit"`
}

// ClusterConfig describes the source cluster: how to reach it, how to
// discover its members, and which remote commands drive the store.
type ClusterConfig struct {
	// Host is the cluster entry host (routes are dumped there; in
	// single-node mode it is also the only transfer source).
	Host string `toml:"host"`

	// Clustered selects per-owner fan-out; false collapses every route
	// onto Host.
	Clustered bool `toml:"clustered"`

	// Role filters node discovery to data-holding members.
	Role string `toml:"role"`

	// Topology is "remote" (ask the cluster) or "static" (use Nodes).
	Topology string   `toml:"topology"`
	Nodes    []string `toml:"nodes,omitempty"`

	// StorePath is the object store root on the source nodes.
	StorePath string `toml:"store_path"`

	// DefaultOwner is the remote identity used when the store owner
	// probe fails.
	DefaultOwner string `toml:"default_owner"`

	// SSHOptions are passed verbatim to ssh for both remote commands
	// and transfers.
	SSHOptions []string `toml:"ssh_options,omitempty"`

	// Remote commands, run verbatim on cluster hosts. The {role}
	// placeholder in list_nodes_command is substituted at run time.
	RouteDumpCommand      string `toml:"route_dump_command"`
	ListNodesCommand      string `toml:"list_nodes_command,omitempty"`
	MaintenanceOffCommand string `toml:"maintenance_off_command"`
	MaintenanceOnCommand  string `toml:"maintenance_on_command"`
}

// SnapshotsConfig holds snapshot storage settings.
type SnapshotsConfig struct {
	Root string `toml:"root"`
}

// TransferConfig holds rsync settings.
type TransferConfig struct {
	RsyncPath      string `toml:"rsync_path,omitempty"`
	BandwidthLimit string `toml:"bandwidth_limit,omitempty"`
}

// VerificationConfig holds post-transfer check settings.
type VerificationConfig struct {
	Skip        bool `toml:"skip"`
	ObjectDepth int  `toml:"object_depth,omitempty"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// AuditConfig represents configuration for the run manifest sink.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type AuditConfig struct {
	Type string `toml:"type"` // "none", "filesystem", "s3", or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// NewConfig creates a new Config with the provided values and the
// standard ringstore command set.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Cluster: ClusterConfig{
			Clustered:             true,
			Role:                  "storage-server",
			Topology:              "remote",
			StorePath:             "/var/lib/ringstore/objects",
			DefaultOwner:          "ringstore",
			RouteDumpCommand:      "ringstore-admin routes dump --compress",
			ListNodesCommand:      "ringstore-admin nodes list --role {role} --quiet",
			MaintenanceOffCommand: "ringstore-admin maintenance suspend",
			MaintenanceOnCommand:  "ringstore-admin maintenance resume",
		},
		Snapshots: SnapshotsConfig{
			Root: filepath.Join(baseDir, "snapshots"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Audit: AuditConfig{Type: "none"},
	}
}

// applyDefaults fills derived paths and modes an abbreviated config
// omits.
func (c *Config) applyDefaults() {
	if c.BaseDir != "" {
		if c.LogDir == "" {
			c.LogDir = filepath.Join(c.BaseDir, "log")
		}
		if c.Snapshots.Root == "" {
			c.Snapshots.Root = filepath.Join(c.BaseDir, "snapshots")
		}
		if c.Database.Type == "" {
			c.Database.Type = "sqlite"
		}
		if c.Database.Type == "sqlite" && c.Database.DataDir == "" {
			c.Database.DataDir = filepath.Join(c.BaseDir, "db")
		}
	}
	if c.Cluster.Topology == "" {
		if len(c.Cluster.Nodes) > 0 {
			c.Cluster.Topology = "static"
		} else {
			c.Cluster.Topology = "remote"
		}
	}
	if c.Cluster.Role == "" {
		c.Cluster.Role = "storage-server"
	}
}

// Validate checks the fields every run depends on. The component
// factories validate their own sections; this covers what the
// orchestrator needs directly.
func (c *Config) Validate() error {
	if c.HostID == "" {
		return fmt.Errorf("host_id is required")
	}
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir is required")
	}
	if c.Cluster.Host == "" {
		return fmt.Errorf("cluster.host is required")
	}
	if c.Cluster.StorePath == "" {
		return fmt.Errorf("cluster.store_path is required")
	}
	if c.Cluster.RouteDumpCommand == "" {
		return fmt.Errorf("cluster.route_dump_command is required")
	}
	if c.Cluster.MaintenanceOffCommand == "" {
		return fmt.Errorf("cluster.maintenance_off_command is required")
	}
	if c.Cluster.MaintenanceOnCommand == "" {
		return fmt.Errorf("cluster.maintenance_on_command is required")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
