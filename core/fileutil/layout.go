package fileutil

import (
	"errors"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TempSuffix marks content that is still being downloaded.
const TempSuffix = ".temp.download"

const bucketCount = 256

// Layout resolves where the content of a cloud-disk entry is cached.
// Content lives at <Root>/<UserID>/<Bundle>/<bucket>/<cloudID>.
type Layout struct {
	Root   string
	UserID int
	Bundle string
}

// BucketDir returns the directory holding the content of cloudID.
func (l Layout) BucketDir(cloudID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(cloudID))
	bucket := strconv.Itoa(int(h.Sum32() % bucketCount))
	return filepath.Join(l.Root, strconv.Itoa(l.UserID), l.Bundle, bucket)
}

// ContentPath returns the cached content path of cloudID.
func (l Layout) ContentPath(cloudID string) string {
	return filepath.Join(l.BucketDir(cloudID), cloudID)
}

// TempName returns the file name used while cloudID downloads.
func TempName(cloudID string) string {
	return cloudID + TempSuffix
}

// TrimTemp strips TempSuffix from a name or path.
func TrimTemp(name string) string {
	return strings.TrimSuffix(name, TempSuffix)
}

// RemoveIfExists unlinks path. A missing file is not an error.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
