package sftpx

import "errors"

// ErrConfigNotFound indicates that no ssh config file exists at the expected
// path. There is no implicit creation and no search of alternate locations.
var ErrConfigNotFound = errors.New("ssh config not found")

// ErrNoPrivateKey indicates that every private key candidate was exhausted:
// the identity file from the ssh config entry was missing or unusable, and
// none of the conventionally named keys in the default key directory could
// be loaded either.
var ErrNoPrivateKey = errors.New("no usable private key found")
