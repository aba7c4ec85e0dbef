// Package config loads the server and client configuration surfaces
// described in spec.md §6, merging defaults, an optional file, and
// environment variables (prefix SWANDNS_) with env taking precedence.
// This is grounded in the koanf dependency retrieved alongside the
// teacher (the haukened-rr-dns manifest in the pack), replacing the
// teacher's own internal/config.Config (a bare struct + NewConfig
// defaults, no file/env merge).
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"swandns/internal/errs"
)

// RecordConfig is one static (key,value) pair of a ZoneConfig.
type RecordConfig struct {
	Key   string `koanf:"key"`
	Value string `koanf:"value"`
}

// ZoneConfig is the boot-time ZoneSpec (spec.md §3).
type ZoneConfig struct {
	Name    string         `koanf:"name"`
	Records []RecordConfig `koanf:"records"`
}

// ServerConfig is the full server configuration surface (spec.md §6).
type ServerConfig struct {
	DataDir     string       `koanf:"data_dir"`
	DBFile      string       `koanf:"db_file"`
	Bind        string       `koanf:"bind"`
	DNSPort     uint16       `koanf:"dns_port"`
	APIPort     uint16       `koanf:"api_port"`
	Nameservers []string     `koanf:"nameservers"`
	Zones       []ZoneConfig `koanf:"zones"`
}

// ClientRecordConfig is one configured (name, interface, protocol) tuple
// the Dynamic Client publishes (spec.md §6, §4.8).
type ClientRecordConfig struct {
	ServerURL string `koanf:"server_url"`
	Name      string `koanf:"name"`
	Bind      string `koanf:"bind"`
	Protocol  string `koanf:"protocol"`
}

// ClientConfig is the full client configuration surface (spec.md §6).
type ClientConfig struct {
	DefaultServerURL string                `koanf:"default_server_url"`
	DefaultBind      string                `koanf:"default_bind"`
	DefaultProtocol  string                `koanf:"default_protocol"`
	Records          []ClientRecordConfig  `koanf:"records"`
}

func serverDefaults() map[string]interface{} {
	return map[string]interface{}{
		"data_dir": "/var/lib/swandns",
		"db_file":  "records.lmdb",
		"bind":     "0.0.0.0",
		"dns_port": 1053,
		"api_port": 8080,
	}
}

func clientDefaults() map[string]interface{} {
	return map[string]interface{}{
		"default_protocol": "ipv4",
	}
}

// envTransform rewrites SWANDNS_DATA_DIR into data_dir: the prefix is
// dropped and the rest lower-cased, matching the snake_case key names used
// throughout this config surface.
func envTransform(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, "SWANDNS_"))
	return key, v
}

// LoadServerConfig merges defaults, an optional YAML file at path (empty
// skips the file layer), and SWANDNS_-prefixed environment variables, in
// that precedence order (spec.md §6).
func LoadServerConfig(path string) (*ServerConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(serverDefaults(), "."), nil); err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, "config: load defaults", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.KindInvalidConfig, "config: load file "+path, err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{Prefix: "SWANDNS_", TransformFunc: envTransform}), nil); err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, "config: load env", err)
	}

	var cfg ServerConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, "config: unmarshal", err)
	}
	if cfg.DataDir == "" || cfg.DBFile == "" {
		return nil, errs.New(errs.KindInvalidConfig, "config: data_dir and db_file are required")
	}
	return &cfg, nil
}

// LoadClientConfig merges defaults, an optional file, and env, mirroring
// LoadServerConfig's precedence.
func LoadClientConfig(path string) (*ClientConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(clientDefaults(), "."), nil); err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, "config: load defaults", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.KindInvalidConfig, "config: load file "+path, err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{Prefix: "SWANDNS_", TransformFunc: envTransform}), nil); err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, "config: load env", err)
	}

	var cfg ClientConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errs.Wrap(errs.KindInvalidConfig, "config: unmarshal", err)
	}
	return &cfg, nil
}
