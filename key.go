package sftpx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// KeyKind identifies one of the two supported private key encodings.
type KeyKind int

const (
	// KindRSA is an RSA private key (conventional filename id_rsa).
	KindRSA KeyKind = iota
	// KindEd25519 is an Ed25519 private key (conventional filename id_ed25519).
	KindEd25519
)

func (k KeyKind) String() string {
	switch k {
	case KindRSA:
		return "rsa"
	case KindEd25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

// algo returns the ssh public key algorithm name for the kind.
func (k KeyKind) algo() string {
	if k == KindEd25519 {
		return ssh.KeyAlgoED25519
	}

	return ssh.KeyAlgoRSA
}

// defaultFilename returns the conventional key filename for the kind.
func (k KeyKind) defaultFilename() string {
	if k == KindEd25519 {
		return "id_ed25519"
	}

	return "id_rsa"
}

// keyKinds lists the supported kinds in the fixed order they are attempted.
var keyKinds = [...]KeyKind{KindRSA, KindEd25519}

// KeyMaterial is a decoded private key tagged with its encoding kind. It is
// consumed once by the session-open call and not retained afterward.
type KeyMaterial struct {
	Signer ssh.Signer
	Kind   KeyKind
}

// LoadKey loads the private key at path. The path is whitespace-trimmed
// (some ssh config parsers leave padding on parsed values) and a leading
// "~/" is expanded to the user home directory. The file is decoded as RSA
// first and Ed25519 second; when both decodes fail the second failure
// propagates. I/O errors propagate as-is without a decode attempt.
func LoadKey(path string) (KeyMaterial, error) {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(os.Getenv("HOME"), path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return KeyMaterial{}, err
	}

	var lastErr error

	for _, kind := range keyKinds {
		signer, err := decodeKey(data, kind)
		if err == nil {
			return KeyMaterial{Signer: signer, Kind: kind}, nil
		}

		lastErr = err
	}

	return KeyMaterial{}, fmt.Errorf("failed to decode private key %q: %w", path, lastErr)
}

// decodeKey decodes data as a private key of the given kind.
func decodeKey(data []byte, kind KeyKind) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}

	if got := signer.PublicKey().Type(); got != kind.algo() {
		return nil, fmt.Errorf("key is %s, not %s", got, kind.algo())
	}

	return signer, nil
}

// KeyResolver discovers the private key to use for a resolved host entry,
// falling back to conventionally named keys in Dir.
type KeyResolver struct {
	Dir    string // default key directory, e.g. ~/.ssh
	Logger zerolog.Logger
}

// ResolveForHost picks the private key for rc. Only the first identity file
// from the config entry is attempted; extra entries are ignored with a
// warning. On any failure (including no identity file at all) the resolver
// scans Dir for the canonical filenames, id_rsa before id_ed25519, and the
// first key that loads wins. When every candidate is exhausted it fails with
// ErrNoPrivateKey.
func (r KeyResolver) ResolveForHost(rc ResolvedConfig) (KeyMaterial, error) {
	if len(rc.IdentityFiles) > 1 {
		r.Logger.Warn().
			Strs("identity_files", rc.IdentityFiles).
			Str("selected", rc.IdentityFiles[0]).
			Msg("multiple identity files configured, using the first")
	}

	if len(rc.IdentityFiles) > 0 {
		km, err := LoadKey(rc.IdentityFiles[0])
		if err == nil {
			return km, nil
		}

		r.Logger.Warn().
			Err(err).
			Str("path", rc.IdentityFiles[0]).
			Str("key_dir", r.Dir).
			Msg("configured identity file unusable, searching default key directory")
	}

	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("%w: cannot read %q", ErrNoPrivateKey, r.Dir)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	for _, kind := range keyKinds {
		name := kind.defaultFilename()
		if !present[name] {
			continue
		}

		candidate := filepath.Join(r.Dir, name)

		km, err := LoadKey(candidate)
		if err != nil {
			r.Logger.Debug().Err(err).Str("path", candidate).Msg("candidate key unusable")

			continue
		}

		r.Logger.Debug().Str("path", candidate).Msg("using key from default key directory")

		return km, nil
	}

	return KeyMaterial{}, fmt.Errorf("%w in ssh config or %q", ErrNoPrivateKey, r.Dir)
}
