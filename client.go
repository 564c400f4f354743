package sftpx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config holds all parameters required to establish an SFTP connection.
type Config struct {
	// Connection details. Host is either a hostname or an alias defined in
	// the ssh config file.
	Host string
	Port int    // port number (default 22)
	User string // username to authenticate as

	// PrivateKeyPath is the key to authenticate with. When both User and
	// PrivateKeyPath are set the ssh config file is bypassed entirely;
	// setting only one of them does not.
	PrivateKeyPath string

	// SSHConfigPath is the ssh config file consulted for alias resolution
	// (default ~/.ssh/config).
	SSHConfigPath string

	// KeyDir is searched for conventionally named keys (id_rsa, id_ed25519)
	// when no usable identity file is configured (default ~/.ssh).
	KeyDir string

	// Connection settings
	Timeout            time.Duration       // connect timeout (default 10s)
	HostKeyCheck       ssh.HostKeyCallback // callback to verify the host key
	InsecureSkipVerify bool                // disables host key checking. Use ONLY for testing.

	// Logger scopes all log output to one client instance.
	Logger zerolog.Logger
}

// NewConfig creates a Config for host with safe defaults and applies opts.
// Note: it does NOT set a HostKeyCheck. Provide one (e.g. DefaultKnownHosts)
// or set InsecureSkipVerify=true.
func NewConfig(host string, opts ...Option) Config {
	c := Config{
		Host:    host,
		Port:    22,
		Timeout: 10 * time.Second,
		Logger:  zerolog.Nop(),
	}

	for _, o := range opts {
		o(&c)
	}

	return c
}

// WithDefaults sets default values for zero-valued fields.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 22
	}

	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}

	if c.SSHConfigPath == "" {
		c.SSHConfigPath = filepath.Join(os.Getenv("HOME"), ".ssh", "config")
	}

	if c.KeyDir == "" {
		c.KeyDir = filepath.Join(os.Getenv("HOME"), ".ssh")
	}

	// If insecure is requested and no callback provided, use insecure ignore.
	if c.InsecureSkipVerify && c.HostKeyCheck == nil {
		c.HostKeyCheck = ssh.InsecureIgnoreHostKey()
	}

	return c
}

// Validate ensures all required fields are present.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("configuration error: host cannot be empty")
	}

	if c.HostKeyCheck == nil {
		return errors.New("configuration error: HostKeyCheck is missing; provide a callback (e.g. DefaultKnownHosts) or set InsecureSkipVerify=true (testing only)")
	}

	return nil
}

// DefaultKnownHosts returns a HostKeyCallback that verifies the host key
// against strict entries in the user's ~/.ssh/known_hosts file.
func DefaultKnownHosts() (ssh.HostKeyCallback, error) {
	path := filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts")

	return knownhosts.New(path)
}

// Client is a lazily connecting SFTP convenience client. The SSH transport
// and SFTP sub-channel are established on the first file operation (or an
// explicit Connect) and cleared by Close, so a closed client dials a fresh
// session on its next operation instead of touching a dead handle.
//
// One goroutine drives one Client; file operations are sequential.
type Client struct {
	config Config
	logger zerolog.Logger

	mu        sync.Mutex
	transport io.Closer
	sess      session
	resolved  *ResolvedConfig

	dial func() (io.Closer, session, error)
}

// New creates a Client for c. No connection is made until the first file
// operation or an explicit Connect.
func New(c Config) *Client {
	c = c.WithDefaults()

	cl := &Client{
		config: c,
		logger: c.Logger,
	}
	cl.dial = cl.dialSSH

	return cl
}

// buildConnection decides the final (hostname, user, port, key) tuple.
// Explicit user and private key together bypass the ssh config entirely;
// anything less falls through to full config resolution. The two paths never
// mix.
func (c *Client) buildConnection() (string, string, int, KeyMaterial, error) {
	if c.config.User != "" && c.config.PrivateKeyPath != "" {
		c.logger.Debug().Msg("using explicit user and private key, skipping ssh config")

		km, err := LoadKey(c.config.PrivateKeyPath)
		if err != nil {
			return "", "", 0, KeyMaterial{}, err
		}

		return c.config.Host, c.config.User, c.config.Port, km, nil
	}

	c.logger.Info().Str("path", c.config.SSHConfigPath).Msg("loading ssh config")

	store, err := LoadConfig(c.config.SSHConfigPath)
	if err != nil {
		return "", "", 0, KeyMaterial{}, err
	}

	rc := store.Lookup(c.config.Host, c.config.Port, c.config.User)

	resolver := KeyResolver{Dir: c.config.KeyDir, Logger: c.logger}

	km, err := resolver.ResolveForHost(rc)
	if err != nil {
		return "", "", 0, KeyMaterial{}, err
	}

	// Retained for caller diagnostics only; never reused internally.
	c.resolved = &rc

	return rc.Hostname, rc.User, rc.Port, km, nil
}

// dialSSH establishes the SSH transport and the SFTP sub-channel on top.
func (c *Client) dialSSH() (io.Closer, session, error) {
	hostname, username, port, km, err := c.buildConnection()
	if err != nil {
		return nil, nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(km.Signer)},
		HostKeyCallback: c.config.HostKeyCheck,
		Timeout:         c.config.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", hostname, port)

	c.logger.Info().
		Str("addr", addr).
		Str("user", username).
		Stringer("key_kind", km.Kind).
		Msg("connecting")

	sshClient, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial ssh at %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()

		return nil, nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	return sshClient, sftpRemote{sftpClient}, nil
}

// Connect establishes the session now instead of on the first file
// operation. Calling Connect on a connected client is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ensureLocked()
}

func (c *Client) ensureLocked() error {
	if c.sess != nil {
		return nil
	}

	if err := c.config.Validate(); err != nil {
		return err
	}

	transport, sess, err := c.dial()
	if err != nil {
		c.logger.Error().Err(err).Str("host", c.config.Host).Msg("failed to establish sftp session")

		return err
	}

	c.transport = transport
	c.sess = sess

	return nil
}

// session returns the live session, dialing first if there is none.
func (c *Client) session() (session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(); err != nil {
		return nil, err
	}

	return c.sess, nil
}

// Close tears down the SFTP sub-channel and the SSH transport. The client
// remains usable: the next file operation establishes a fresh session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, transport := c.sess, c.transport
	c.sess, c.transport = nil, nil

	var firstErr error

	if sess != nil {
		firstErr = sess.Close()
	}

	if transport != nil {
		if err := transport.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Resolved returns the connection details looked up from the ssh config, or
// nil when the explicit-credentials path was taken or no session has been
// built yet. Diagnostic only.
func (c *Client) Resolved() *ResolvedConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolved
}
