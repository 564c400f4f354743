package sftpx

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Option defines a functional option for Config.
type Option func(*Config)

// WithPort sets the port to connect to.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithUser sets the user to authenticate as.
func WithUser(user string) Option {
	return func(c *Config) {
		c.User = user
	}
}

// WithKeyPath sets the path to the private key file. Together with WithUser
// it bypasses ssh config resolution entirely.
func WithKeyPath(path string) Option {
	return func(c *Config) {
		c.PrivateKeyPath = path
	}
}

// WithSSHConfigPath sets the ssh config file consulted for alias resolution.
func WithSSHConfigPath(path string) Option {
	return func(c *Config) {
		c.SSHConfigPath = path
	}
}

// WithKeyDir sets the directory searched for conventionally named keys.
func WithKeyDir(dir string) Option {
	return func(c *Config) {
		c.KeyDir = dir
	}
}

// WithTimeout sets the connect timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHostKeyCheck sets the host key verification callback.
func WithHostKeyCheck(cb ssh.HostKeyCallback) Option {
	return func(c *Config) {
		c.HostKeyCheck = cb
	}
}

// WithInsecureSkipVerify enables/disables strict host key checking.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Config) {
		c.InsecureSkipVerify = skip
	}
}

// WithLogger sets the logger scoped to the client instance.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// matchConfig holds the filter configuration for DownloadMatching.
type matchConfig struct {
	prefix      string
	suffix      string
	deleteAfter bool
}

// MatchOption defines a functional option for DownloadMatching.
type MatchOption func(*matchConfig)

// WithPrefix keeps remote names starting with prefix.
func WithPrefix(prefix string) MatchOption {
	return func(m *matchConfig) {
		m.prefix = prefix
	}
}

// WithSuffix keeps remote names ending with suffix.
func WithSuffix(suffix string) MatchOption {
	return func(m *matchConfig) {
		m.suffix = suffix
	}
}

// WithDeleteAfter removes each remote file immediately after its own
// successful download, before the next match is fetched.
func WithDeleteAfter() MatchOption {
	return func(m *matchConfig) {
		m.deleteAfter = true
	}
}
