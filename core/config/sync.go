package config

import (
	"path/filepath"

	"clouddisk-sync/core/fileutil"
)

// Sync identifies whose cloud disk this process reconciles and where its
// content is cached.
type Sync struct {
	UserID     int    `mapstructure:"user_id" default:"100" validate:"min=0"`
	BundleName string `mapstructure:"bundle_name" default:"com.example.clouddisk" validate:"required"`
	// DataDir is the root of the local content cache.
	DataDir    string `mapstructure:"data_dir" default:"./data/content" validate:"required"`
	RecordType string `mapstructure:"record_type" default:"file" validate:"required"`
}

// Layout returns the content cache layout of this session.
func (s Sync) Layout() fileutil.Layout {
	return fileutil.Layout{Root: filepath.Clean(s.DataDir), UserID: s.UserID, Bundle: s.BundleName}
}
