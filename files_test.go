package sftpx

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockSession implements session using testify/mock.
type mockSession struct {
	mock.Mock
}

var _ session = (*mockSession)(nil)

func newMockSession() *mockSession {
	return &mockSession{}
}

func (m *mockSession) ReadDir(path string) ([]os.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]os.FileInfo), args.Error(1)
}

func (m *mockSession) Open(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockSession) Create(path string) (io.WriteCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *mockSession) Remove(path string) error {
	return m.Called(path).Error(0)
}

func (m *mockSession) Rename(oldname, newname string) error {
	return m.Called(oldname, newname).Error(0)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}

// fakeFileInfo is the minimal os.FileInfo a directory listing needs.
type fakeFileInfo struct {
	name string
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() os.FileMode  { return 0 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() any           { return nil }

func listing(names ...string) []os.FileInfo {
	infos := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, fakeFileInfo{name: name})
	}

	return infos
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// newTestClient wires a client to a fake session, skipping the SSH dial.
func newTestClient(t *testing.T, sess session) *Client {
	t.Helper()

	c := New(NewConfig("testhost", WithInsecureSkipVerify(true)))
	c.dial = func() (io.Closer, session, error) {
		return &nopTransport{}, sess, nil
	}

	return c
}

func TestClient_List(t *testing.T) {
	t.Parallel()

	sess := newMockSession()
	sess.On("ReadDir", "/data").Return(listing("c", "a", "b"), nil)

	names, err := newTestClient(t, sess).List("/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, names, "listing order preserved, not sorted")
}

func TestClient_Download(t *testing.T) {
	t.Parallel()

	localPath := filepath.Join(t.TempDir(), "out.txt")

	sess := newMockSession()
	sess.On("Open", "/remote/out.txt").Return(io.NopCloser(strings.NewReader("payload")), nil)

	require.NoError(t, newTestClient(t, sess).Download("/remote/out.txt", localPath))

	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestClient_Upload(t *testing.T) {
	t.Parallel()

	localPath := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(localPath, []byte("hello"), 0o644))

	var buf bytes.Buffer

	sess := newMockSession()
	sess.On("Create", "/remote/payload.txt").Return(nopWriteCloser{&buf}, nil)

	require.NoError(t, newTestClient(t, sess).Upload(localPath, "/remote/payload.txt"))
	assert.Equal(t, "hello", buf.String())
}

func TestClient_RemoveRename(t *testing.T) {
	t.Parallel()

	sess := newMockSession()
	sess.On("Remove", "/remote/stale.txt").Return(nil)
	sess.On("Rename", "/remote/a.txt", "/remote/b.txt").Return(nil)

	c := newTestClient(t, sess)
	require.NoError(t, c.Remove("/remote/stale.txt"))
	require.NoError(t, c.Rename("/remote/a.txt", "/remote/b.txt"))
	sess.AssertExpectations(t)
}

type trackedReadCloser struct {
	io.Reader

	closed bool
}

func (rc *trackedReadCloser) Close() error {
	rc.closed = true

	return nil
}

func TestClient_WithFile(t *testing.T) {
	t.Parallel()

	t.Run("closes on success", func(t *testing.T) {
		t.Parallel()

		rc := &trackedReadCloser{Reader: strings.NewReader("contents")}

		sess := newMockSession()
		sess.On("Open", "/remote/data.txt").Return(rc, nil)

		var got string

		err := newTestClient(t, sess).WithFile("/remote/data.txt", func(r io.Reader) error {
			data, err := io.ReadAll(r)
			got = string(data)

			return err
		})
		require.NoError(t, err)
		assert.Equal(t, "contents", got)
		assert.True(t, rc.closed)
	})

	t.Run("closes when fn fails", func(t *testing.T) {
		t.Parallel()

		rc := &trackedReadCloser{Reader: strings.NewReader("contents")}

		sess := newMockSession()
		sess.On("Open", "/remote/data.txt").Return(rc, nil)

		wantErr := errors.New("boom")

		err := newTestClient(t, sess).WithFile("/remote/data.txt", func(io.Reader) error {
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
		assert.True(t, rc.closed)
	})
}

func TestClient_UploadAll(t *testing.T) {
	t.Parallel()

	t.Run("base names joined to the remote dir, in order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		xPath := filepath.Join(dir, "x.txt")
		yPath := filepath.Join(dir, "y.txt")
		require.NoError(t, os.WriteFile(xPath, []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(yPath, []byte("y"), 0o644))

		sess := newMockSession()
		sess.On("Create", "/remote/x.txt").Return(nopWriteCloser{io.Discard}, nil).Once()
		sess.On("Create", "/remote/y.txt").Return(nopWriteCloser{io.Discard}, nil).Once()

		require.NoError(t, newTestClient(t, sess).UploadAll([]string{xPath, yPath}, "/remote"))

		require.Len(t, sess.Calls, 2)
		assert.Equal(t, "/remote/x.txt", sess.Calls[0].Arguments.String(0))
		assert.Equal(t, "/remote/y.txt", sess.Calls[1].Arguments.String(0))
	})

	t.Run("first failure stops the batch", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		xPath := filepath.Join(dir, "x.txt")
		yPath := filepath.Join(dir, "y.txt")
		require.NoError(t, os.WriteFile(xPath, []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(yPath, []byte("y"), 0o644))

		wantErr := errors.New("remote disk full")

		sess := newMockSession()
		sess.On("Create", "/remote/x.txt").Return(nil, wantErr)

		err := newTestClient(t, sess).UploadAll([]string{xPath, yPath}, "/remote")
		assert.ErrorIs(t, err, wantErr)
		sess.AssertNotCalled(t, "Create", "/remote/y.txt")
	})
}

func TestClient_DownloadMatching(t *testing.T) {
	t.Parallel()

	t.Run("suffix filter preserves listing order", func(t *testing.T) {
		t.Parallel()

		localDir := t.TempDir()

		sess := newMockSession()
		sess.On("ReadDir", "/r").Return(listing("some.tgz", "other.zip", "more.tgz"), nil)
		sess.On("Open", "/r/some.tgz").Return(io.NopCloser(strings.NewReader("one")), nil)
		sess.On("Open", "/r/more.tgz").Return(io.NopCloser(strings.NewReader("two")), nil)

		matched, err := newTestClient(t, sess).DownloadMatching("/r", localDir, WithSuffix("tgz"))
		require.NoError(t, err)
		assert.Equal(t, []string{"some.tgz", "more.tgz"}, matched)
		sess.AssertNotCalled(t, "Open", "/r/other.zip")

		data, err := os.ReadFile(filepath.Join(localDir, "some.tgz"))
		require.NoError(t, err)
		assert.Equal(t, "one", string(data))
	})

	t.Run("prefix and suffix combine inclusively", func(t *testing.T) {
		t.Parallel()

		localDir := t.TempDir()

		sess := newMockSession()
		sess.On("ReadDir", "/r").Return(listing("alpha.log", "alpha.tgz", "beta.tgz", "beta.log"), nil)
		sess.On("Open", mock.Anything).Return(io.NopCloser(strings.NewReader("data")), nil)

		matched, err := newTestClient(t, sess).DownloadMatching("/r", localDir,
			WithPrefix("alpha"), WithSuffix("tgz"))
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha.log", "alpha.tgz", "beta.tgz"}, matched)
	})

	t.Run("no filters match nothing", func(t *testing.T) {
		t.Parallel()

		sess := newMockSession()
		sess.On("ReadDir", "/r").Return(listing("some.tgz"), nil)

		matched, err := newTestClient(t, sess).DownloadMatching("/r", t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, matched)
		sess.AssertNotCalled(t, "Open", mock.Anything)
	})

	t.Run("delete follows each download immediately", func(t *testing.T) {
		t.Parallel()

		localDir := t.TempDir()

		sess := newMockSession()
		sess.On("ReadDir", "/r").Return(listing("some.tgz", "other.zip", "more.tgz"), nil)
		sess.On("Open", mock.Anything).Return(io.NopCloser(strings.NewReader("data")), nil)
		sess.On("Remove", mock.Anything).Return(nil)

		_, err := newTestClient(t, sess).DownloadMatching("/r", localDir,
			WithSuffix("tgz"), WithDeleteAfter())
		require.NoError(t, err)

		ops := make([]string, 0, len(sess.Calls))
		for _, call := range sess.Calls {
			ops = append(ops, call.Method+" "+call.Arguments.String(0))
		}

		assert.Equal(t, []string{
			"ReadDir /r",
			"Open /r/some.tgz",
			"Remove /r/some.tgz",
			"Open /r/more.tgz",
			"Remove /r/more.tgz",
		}, ops)
	})

	t.Run("download failure stops the batch", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("connection lost")

		sess := newMockSession()
		sess.On("ReadDir", "/r").Return(listing("some.tgz", "more.tgz"), nil)
		sess.On("Open", "/r/some.tgz").Return(nil, wantErr)

		_, err := newTestClient(t, sess).DownloadMatching("/r", t.TempDir(), WithSuffix("tgz"))
		assert.ErrorIs(t, err, wantErr)
		sess.AssertNotCalled(t, "Open", "/r/more.tgz")
	})
}
