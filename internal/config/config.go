package config

import (
	"fmt"

	"github.com/loykin/tracklink/internal/logger"
	"github.com/loykin/tracklink/internal/snapshot"
	"github.com/spf13/viper"
)

// FileConfig represents the top-level TOML structure.
//
//	[server]
//	listen = ":4000"
//	base_path = "/api"
//	metrics_listen = ":9090"    # optional, exposes /metrics
//
//	[snapshot]
//	type = "file"
//	path = "links.json"
//
//	[relay]
//	send_buffer = 64
//
//	[log]
//	level = "info"
//	color = true
//	path = "tracklink.log"
//
//	history_sinks = ["sqlite://positions.db"]
type FileConfig struct {
	Server       ServerConfig    `toml:"server" mapstructure:"server"`
	Snapshot     snapshot.Config `toml:"snapshot" mapstructure:"snapshot"`
	Relay        RelayConfig     `toml:"relay" mapstructure:"relay"`
	Log          logger.Config   `toml:"log" mapstructure:"log"`
	HistorySinks []string        `toml:"history_sinks" mapstructure:"history_sinks"`
}

type ServerConfig struct {
	Listen        string `toml:"listen" mapstructure:"listen"`
	BasePath      string `toml:"base_path" mapstructure:"base_path"`
	MetricsListen string `toml:"metrics_listen" mapstructure:"metrics_listen"`
}

type RelayConfig struct {
	SendBuffer int `toml:"send_buffer" mapstructure:"send_buffer"`
}

// Load parses a TOML config file and applies defaults. path may be empty, in
// which case only defaults are returned.
func Load(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := v.Unmarshal(fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyDefaults(fc)
	if err := validate(fc); err != nil {
		return nil, err
	}
	return fc, nil
}

func applyDefaults(fc *FileConfig) {
	if fc.Server.Listen == "" {
		fc.Server.Listen = ":4000"
	}
	if fc.Server.BasePath == "" {
		fc.Server.BasePath = "/api"
	}
	if fc.Snapshot.Type == "" {
		fc.Snapshot.Type = "file"
	}
	if fc.Snapshot.Type == "file" && fc.Snapshot.Path == "" {
		fc.Snapshot.Path = "links.json"
	}
}

func validate(fc *FileConfig) error {
	switch fc.Snapshot.Type {
	case "file", "memory":
	default:
		return fmt.Errorf("unsupported snapshot type: %s", fc.Snapshot.Type)
	}
	if fc.Relay.SendBuffer < 0 {
		return fmt.Errorf("relay send_buffer must not be negative")
	}
	return nil
}
