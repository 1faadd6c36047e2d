package fileutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLayout_ContentPath(t *testing.T) {
	l := Layout{Root: "/data", UserID: 100, Bundle: "com.example.disk"}

	p := l.ContentPath("abc")
	assert.True(t, strings.HasPrefix(p, "/data/100/com.example.disk/"))
	assert.Equal(t, "abc", filepath.Base(p))
	assert.Equal(t, l.BucketDir("abc"), filepath.Dir(p))
	assert.Equal(t, l.ContentPath("abc"), p)
}

func TestTempName(t *testing.T) {
	assert.Equal(t, "abc.temp.download", TempName("abc"))
	assert.Equal(t, "/x/abc", TrimTemp("/x/abc.temp.download"))
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	require.NoError(t, RemoveIfExists(p))
	assert.False(t, Exists(p))
	assert.NoError(t, RemoveIfExists(p))
}

func TestIsWriteMode(t *testing.T) {
	assert.False(t, isWriteMode(unix.O_RDONLY))
	assert.True(t, isWriteMode(unix.O_WRONLY|unix.O_APPEND))
	assert.True(t, isWriteMode(unix.O_RDWR))
}

type fakeFD struct {
	link  string
	flags string
}

// fakeProc lays out a minimal procfs tree with one process and its
// descriptors, numbered from 3.
func fakeProc(t *testing.T, pid int, fds ...fakeFD) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fd"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fdinfo"), 0o755))
	// not a pid, must be skipped
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys"), 0o755))
	for i, fd := range fds {
		name := strconv.Itoa(i + 3)
		require.NoError(t, os.Symlink(fd.link, filepath.Join(dir, "fd", name)))
		info := "pos:\t0\nflags:\t" + fd.flags + "\nmnt_id:\t1\nino:\t7\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "fdinfo", name), []byte(info), 0o644))
	}
	return root
}

func TestProcChecker(t *testing.T) {
	target := filepath.Join(t.TempDir(), "content")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	other := target + ".other"

	tests := []struct {
		name string
		pid  int
		fds  []fakeFD
		path string
		want bool
	}{
		{name: "write handle", pid: 4242, fds: []fakeFD{{target, "0100001"}}, path: target, want: true},
		{name: "read handle", pid: 4242, fds: []fakeFD{{target, "0100000"}}, path: target},
		{name: "other file", pid: 4242, fds: []fakeFD{{target, "0100002"}}, path: other},
		{
			name: "read and write handles",
			pid:  4242,
			fds:  []fakeFD{{other, "0100002"}, {target, "0100000"}, {target, "02"}},
			path: target,
			want: true,
		},
		{name: "own process ignored", pid: os.Getpid(), fds: []fakeFD{{target, "0100002"}}, path: target},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ProcChecker{ProcRoot: fakeProc(t, tt.pid, tt.fds...)}
			assert.Equal(t, tt.want, c.IsWriteOpen(tt.path))
		})
	}

	t.Run("no procfs", func(t *testing.T) {
		c := ProcChecker{ProcRoot: filepath.Join(t.TempDir(), "missing")}
		assert.False(t, c.IsWriteOpen(target))
	})
}

func TestOpenSet(t *testing.T) {
	s := OpenSet{"/a": true}
	assert.True(t, s.IsWriteOpen("/a"))
	assert.False(t, s.IsWriteOpen("/b"))
}
