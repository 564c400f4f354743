package sftpx

import (
	"io"
	"os"

	"github.com/pkg/sftp"
)

// session is the subset of the SFTP sub-channel the client drives. Keeping
// it narrow lets tests substitute the remote end without a server.
type session interface {
	io.Closer

	ReadDir(path string) ([]os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
	Rename(oldname, newname string) error
}

// sftpRemote adapts *sftp.Client to the session interface.
type sftpRemote struct {
	*sftp.Client
}

func (s sftpRemote) Open(path string) (io.ReadCloser, error) {
	return s.Client.Open(path)
}

func (s sftpRemote) Create(path string) (io.WriteCloser, error) {
	return s.Client.Create(path)
}
