package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/portcullis/firewall/bucketed"
	ftypes "go.hackfix.me/portcullis/firewall/types"
)

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Firewall Firewall

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Firewall defines rule engine configuration options.
type Firewall struct {
	// Engine is the rule engine used to classify packets.
	Engine sql.Null[ftypes.EngineType] `json:"engine"`
	// Buckets is the number of port buckets used by the bucketed engine. It
	// must evenly divide 65536.
	Buckets sql.Null[int] `json:"buckets"`
	// RulesFile is the path to a CSV file with rules that are loaded in
	// addition to the stored rules when classifying packets.
	RulesFile sql.Null[string] `json:"rules_file"`
}

type cfgWrapper struct {
	Firewall fwCfgWrapper `json:"firewall"`
}
type fwCfgWrapper struct {
	Engine    string `json:"engine,omitempty"`
	Buckets   int    `json:"buckets,omitempty"`
	RulesFile string `json:"rules_file,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Firewall.Engine.Valid {
		w.Firewall.Engine = string(c.Firewall.Engine.V)
	}
	if c.Firewall.Buckets.Valid {
		w.Firewall.Buckets = c.Firewall.Buckets.V
	}
	if c.Firewall.RulesFile.Valid {
		w.Firewall.RulesFile = c.Firewall.RulesFile.V
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Firewall.Engine != "" {
		et, err := ftypes.EngineTypeFromString(w.Firewall.Engine)
		if err != nil {
			return err
		}
		c.Firewall.Engine = sql.Null[ftypes.EngineType]{V: et, Valid: true}
	}
	if w.Firewall.Buckets != 0 {
		if w.Firewall.Buckets < 0 || ftypes.PortSpace%w.Firewall.Buckets != 0 {
			return fmt.Errorf("%w %d: must evenly divide %d",
				ftypes.ErrInvalidBucketCount, w.Firewall.Buckets, ftypes.PortSpace)
		}
		c.Firewall.Buckets = sql.Null[int]{V: w.Firewall.Buckets, Valid: true}
	}
	if w.Firewall.RulesFile != "" {
		c.Firewall.RulesFile = sql.Null[string]{V: w.Firewall.RulesFile, Valid: true}
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Firewall.Engine.Valid {
		c.Firewall.Engine = sql.Null[ftypes.EngineType]{V: ftypes.EngineBucketed, Valid: true}
	}
	if !c.Firewall.Buckets.Valid {
		c.Firewall.Buckets = sql.Null[int]{V: bucketed.DefaultBucketCount, Valid: true}
	}
}
