package sftpx

import (
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
)

// logOpErr logs one line for a failed remote operation and returns the error
// unchanged, so callers see the collaborator's native failure type.
func (c *Client) logOpErr(op string, err error) error {
	c.logger.Error().Err(err).Str("op", op).Msg("remote operation failed")

	return err
}

// List returns the entry names in remoteDir, in the order the server reports
// them (not sorted).
func (c *Client) List(remoteDir string) ([]string, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	infos, err := sess.ReadDir(remoteDir)
	if err != nil {
		return nil, c.logOpErr("list", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}

	return names, nil
}

// Download copies the remote file at remotePath to localPath.
func (c *Client) Download(remotePath, localPath string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}

	src, err := sess.Open(remotePath)
	if err != nil {
		return c.logOpErr("download", err)
	}

	defer func() { _ = src.Close() }()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return c.logOpErr("download", err)
	}

	return nil
}

// Upload copies the local file at localPath to remotePath.
func (c *Client) Upload(localPath, remotePath string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	dst, err := sess.Create(remotePath)
	if err != nil {
		return c.logOpErr("upload", err)
	}

	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return c.logOpErr("upload", err)
	}

	return nil
}

// Remove deletes the remote file at remotePath.
func (c *Client) Remove(remotePath string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}

	if err := sess.Remove(remotePath); err != nil {
		return c.logOpErr("remove", err)
	}

	return nil
}

// Rename moves the remote file at oldPath to newPath.
func (c *Client) Rename(oldPath, newPath string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}

	if err := sess.Rename(oldPath, newPath); err != nil {
		return c.logOpErr("rename", err)
	}

	return nil
}

// Open opens the remote file at remotePath for reading. The caller owns the
// returned handle and must close it; WithFile does this automatically.
func (c *Client) Open(remotePath string) (io.ReadCloser, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	f, err := sess.Open(remotePath)
	if err != nil {
		return nil, c.logOpErr("open", err)
	}

	return f, nil
}

// WithFile opens the remote file at remotePath, passes it to fn and closes
// it on every exit path.
func (c *Client) WithFile(remotePath string, fn func(io.Reader) error) error {
	f, err := c.Open(remotePath)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	return fn(f)
}

// UploadAll uploads each file in localPaths into remoteDir, keeping only the
// base filename at the destination. Uploads happen in order; the first
// failure stops the batch and propagates, and files already uploaded are not
// rolled back.
func (c *Client) UploadAll(localPaths []string, remoteDir string) error {
	for _, localPath := range localPaths {
		remotePath := pathpkg.Join(remoteDir, filepath.Base(localPath))

		c.logger.Info().Str("local", localPath).Str("remote", remotePath).Msg("uploading")

		if err := c.Upload(localPath, remotePath); err != nil {
			return err
		}
	}

	return nil
}

// DownloadMatching lists remoteDir once, downloads the entries whose name
// matches the configured non-empty prefix or suffix (inclusive or) and
// returns the matched names in listing order. With neither filter set
// nothing matches. localDir defaults to the current working directory.
//
// With WithDeleteAfter each remote file is removed right after its own
// successful download, before the next match is fetched; completed downloads
// are never rolled back.
func (c *Client) DownloadMatching(remoteDir, localDir string, opts ...MatchOption) ([]string, error) {
	var cfg matchConfig
	for _, o := range opts {
		o(&cfg)
	}

	if localDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		localDir = wd
	}

	names, err := c.List(remoteDir)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(names))

	for _, name := range names {
		if (cfg.prefix != "" && strings.HasPrefix(name, cfg.prefix)) ||
			(cfg.suffix != "" && strings.HasSuffix(name, cfg.suffix)) {
			matched = append(matched, name)
		}
	}

	c.logger.Info().Strs("files", matched).Str("remote_dir", remoteDir).Msg("matching remote files")

	for _, name := range matched {
		remotePath := pathpkg.Join(remoteDir, name)

		c.logger.Info().Str("path", remotePath).Msg("downloading")

		if err := c.Download(remotePath, filepath.Join(localDir, name)); err != nil {
			return nil, err
		}

		if cfg.deleteAfter {
			c.logger.Info().Str("path", remotePath).Msg("removing remote file")

			if err := c.Remove(remotePath); err != nil {
				return nil, err
			}
		}
	}

	return matched, nil
}
