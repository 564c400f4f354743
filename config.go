package sftpx

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// ResolvedConfig holds the connection details resolved for a host alias.
type ResolvedConfig struct {
	Hostname      string
	Port          int
	User          string
	IdentityFiles []string
}

// ConfigStore is a parsed ssh config file ready for alias lookups.
type ConfigStore struct {
	cfg *ssh_config.Config
}

// LoadConfig parses the ssh config file at path. A missing file fails with
// ErrConfigNotFound.
func LoadConfig(path string) (*ConfigStore, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %q", ErrConfigNotFound, path)
		}

		return nil, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return LoadConfigReader(f)
}

// LoadConfigReader parses ssh config data from r.
func LoadConfigReader(r io.Reader) (*ConfigStore, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	return &ConfigStore{cfg: cfg}, nil
}

// Lookup resolves alias to its connection details. Fields absent from the
// matched entry fall back to: hostname = the alias itself, port =
// defaultPort, user = fallbackUser if non-empty, else the current OS user.
//
// All string fields are whitespace-trimmed regardless of what the parser
// returns; quoted config values can legally carry padding and some parsers
// leave it in place.
func (s *ConfigStore) Lookup(alias string, defaultPort int, fallbackUser string) ResolvedConfig {
	hostname, _ := s.cfg.Get(alias, "HostName")

	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		hostname = strings.TrimSpace(alias)
	}

	port := defaultPort
	if portStr, _ := s.cfg.Get(alias, "Port"); strings.TrimSpace(portStr) != "" {
		if p, err := strconv.Atoi(strings.TrimSpace(portStr)); err == nil {
			port = p
		}
	}

	username, _ := s.cfg.Get(alias, "User")

	username = strings.TrimSpace(username)
	if username == "" {
		username = strings.TrimSpace(fallbackUser)
	}

	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}

	identities, _ := s.cfg.GetAll(alias, "IdentityFile")
	for i, id := range identities {
		identities[i] = strings.TrimSpace(id)
	}

	return ResolvedConfig{
		Hostname:      hostname,
		Port:          port,
		User:          username,
		IdentityFiles: identities,
	}
}
