// Package sftpx is a convenience client for transferring files over SFTP.
//
// Connection parameters are resolved either from explicit credentials or
// from the user's OpenSSH config file (~/.ssh/config): hostname, port, user
// and identity file are looked up by host alias, with a fallback search of
// the default key directory (~/.ssh) for conventionally named private keys.
//
// The protocol work is delegated to golang.org/x/crypto/ssh and
// github.com/pkg/sftp; this package is a thin orchestration layer on top:
// parameter resolution, key discovery, and pass-through file operations.
//
// The session is established lazily on the first file operation (or an
// explicit Connect) and torn down by Close. A closed client stays usable:
// the next operation dials a fresh session.
//
// Usage:
//
//	client := sftpx.New(sftpx.NewConfig("myalias", sftpx.WithInsecureSkipVerify(true)))
//	defer client.Close()
//
//	names, err := client.List("/incoming")
package sftpx
