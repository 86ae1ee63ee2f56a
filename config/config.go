// Package config loads dit's per-repository configuration file
// (<repo>/config.toml): the rendezvous project name, the server to
// rendezvous through, and the threshold-signing parameters for the group.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"dit/errs"
)

// ServerConfig names the rendezvous server this repository signs through.
type ServerConfig struct {
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// UserConfig overrides the tagger identity baked into generated tags; when
// absent the identity is read from `git config user.name`/`user.email`.
type UserConfig struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
}

// Config is the aggregated configuration for a dit-managed repository.
type Config struct {
	Project      string       `toml:"project"`
	Server       ServerConfig `toml:"server"`
	Participants int          `toml:"participants"`
	Threshold    int          `toml:"threshold"`
	User         *UserConfig  `toml:"user"`
}

// Cfg is the global configuration, populated by ParseConfig.
var Cfg *Config

// ParseConfig reads and decodes a TOML-encoded configuration file into Cfg.
func ParseConfig(fileName string) error {
	file, err := os.ReadFile(fileName)
	if err != nil {
		return errs.New(errs.FileSystem, "reading config file "+fileName, err)
	}
	return ParseConfigBytes(file)
}

// ParseConfigBytes decodes raw TOML bytes into Cfg and validates it.
func ParseConfigBytes(data []byte) error {
	cfg := new(Config)
	if err := toml.Unmarshal(data, cfg); err != nil {
		return errs.New(errs.Decode, "parsing config.toml", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	Cfg = cfg
	return nil
}

// Validate checks the threshold-signing parameters are internally
// consistent: at least 2 participants, and a threshold allowing at least
// t+1 honest signers out of n without exceeding n.
func (c *Config) Validate() error {
	if c.Project == "" {
		return errs.Newf(errs.User, "config: \"project\" must not be empty")
	}
	if c.Participants < 2 {
		return errs.Newf(errs.User, "config: \"participants\" must be at least 2, got %d", c.Participants)
	}
	if c.Threshold < 1 || c.Threshold >= c.Participants {
		return errs.Newf(errs.User, "config: \"threshold\" must satisfy 1 <= threshold < participants (got threshold=%d, participants=%d)", c.Threshold, c.Participants)
	}
	if c.Server.Address == "" {
		return errs.Newf(errs.User, "config: \"server.address\" must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errs.Newf(errs.User, "config: \"server.port\" must be a valid port number, got %d", c.Server.Port)
	}
	return nil
}
