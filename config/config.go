// Package config defines the YAML-loadable shape the core's
// configuration can take and its translation to a Builder. CLI flag
// parsing that produces a Config is out of scope here; this package only
// defines the shape and the ToBuilder translation, the same split
// chproxy's own config.go/main.go draw between "config struct" and "how
// it reaches the process".
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

var (
	defaultConnectionPool = ConnectionPool{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}
	defaultCacheExpire    = Duration(10 * time.Minute)
	defaultConnectTimeout = Duration(30 * time.Second)
)

// Config is the top-level configuration shape.
type Config struct {
	Cache          Cache          `yaml:"cache,omitempty"`
	ConnectionPool ConnectionPool `yaml:"connection_pool,omitempty"`
	Proxy          *ProxyConfig   `yaml:"proxy,omitempty"`
	Timeouts       Timeouts       `yaml:"timeouts,omitempty"`

	// LogDebug enables debug-level logging, mirroring chproxy's
	// top-level log_debug flag.
	LogDebug bool `yaml:"log_debug,omitempty"`

	// Catches all undefined fields, the same unknown-field guard
	// chproxy's config types apply via checkOverflow.
	XXX map[string]interface{} `yaml:",inline"`
}

// Cache configures the persistent cache-metadata store.
type Cache struct {
	Dir     string   `yaml:"dir"`
	MaxSize ByteSize `yaml:"max_size"`
	Expire  Duration `yaml:"expire,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// ConnectionPool configures the connection pool's transport sizing.
type ConnectionPool struct {
	MaxIdleConns        int `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// ProxyConfig configures an optional forward proxy to dial through.
type ProxyConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`

	XXX map[string]interface{} `yaml:",inline"`
}

// Timeouts configures connect/read/write timeouts.
type Timeouts struct {
	Connect Duration `yaml:"connect,omitempty"`
	Read    Duration `yaml:"read,omitempty"`
	Write   Duration `yaml:"write,omitempty"`

	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface, applying
// defaults before overlaying the parsed document exactly as
// chproxy's Config.UnmarshalYAML does with defaultConfig.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	c.ConnectionPool = defaultConnectionPool
	c.Cache.Expire = defaultCacheExpire
	c.Timeouts.Connect = defaultConnectTimeout

	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}
	return checkOverflow(c.XXX, "config")
}

func checkOverflow(m map[string]interface{}, ctx string) error {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return fmt.Errorf("unknown fields in %s: %v", ctx, keys)
}

// LoadFile reads and parses the YAML config at filename.
func LoadFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %q: %w", filename, err)
	}
	return cfg, nil
}
