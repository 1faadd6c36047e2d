package fileutil

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// OpenChecker reports whether a file is currently open for writing by
// another process. The answer is a point-in-time snapshot.
type OpenChecker interface {
	IsWriteOpen(path string) bool
}

// ProcChecker looks for other processes holding the file open for writing
// through procfs. On systems without procfs it always reports false.
//
// A check lists every process and reads the descriptor links of each, so
// its cost grows with the number of open descriptors on the host. fdinfo
// is only read for descriptors that point at the file.
type ProcChecker struct {
	// ProcRoot defaults to /proc.
	ProcRoot string
}

func (p ProcChecker) root() string {
	if p.ProcRoot == "" {
		return procfs.DefaultMountPoint
	}
	return p.ProcRoot
}

func (p ProcChecker) IsWriteOpen(path string) bool {
	target, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	fs, err := procfs.NewFS(p.root())
	if err != nil {
		return false
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return false
	}
	self := os.Getpid()

	for _, proc := range procs {
		if proc.PID == self {
			continue
		}
		if holdsForWrite(proc, target) {
			return true
		}
	}
	return false
}

func holdsForWrite(proc procfs.Proc, target string) bool {
	targets, err := proc.FileDescriptorTargets()
	if err != nil {
		return false
	}
	var hits []int
	for i, t := range targets {
		if t == target {
			hits = append(hits, i)
		}
	}
	if len(hits) == 0 {
		return false
	}
	fds, err := proc.FileDescriptors()
	if err != nil {
		return false
	}
	if len(fds) != len(targets) {
		// the table changed between the two reads; call it busy
		return true
	}
	for _, i := range hits {
		info, err := proc.FDInfo(strconv.FormatUint(uint64(fds[i]), 10))
		if err != nil {
			continue
		}
		flags, err := strconv.ParseInt(info.Flags, 8, 64)
		if err == nil && isWriteMode(int(flags)) {
			return true
		}
	}
	return false
}

func isWriteMode(flags int) bool {
	mode := flags & unix.O_ACCMODE
	return mode == unix.O_WRONLY || mode == unix.O_RDWR
}

// OpenSet is an OpenChecker fed explicitly, e.g. by a filesystem layer that
// tracks its own write handles.
type OpenSet map[string]bool

func (s OpenSet) IsWriteOpen(path string) bool {
	return s[path]
}
