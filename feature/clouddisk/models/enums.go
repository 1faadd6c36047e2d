package models

// DirtyType records why a local row differs from the last synced state.
type DirtyType int

const (
	DirtySynced DirtyType = iota
	DirtyNew
	DirtyMdirty
	DirtyFdirty
	DirtyDeleted
	DirtyRetry
	DirtyNoNeedUpload
)

func (d DirtyType) String() string {
	switch d {
	case DirtySynced:
		return "synced"
	case DirtyNew:
		return "new"
	case DirtyMdirty:
		return "mdirty"
	case DirtyFdirty:
		return "fdirty"
	case DirtyDeleted:
		return "deleted"
	case DirtyRetry:
		return "retry"
	case DirtyNoNeedUpload:
		return "no_need_upload"
	default:
		return "unknown"
	}
}

// IsLocalDirty reports whether local changes take precedence over cloud ones.
func (d DirtyType) IsLocalDirty() bool {
	return d == DirtyMdirty || d == DirtyFdirty || d == DirtyDeleted
}

// Position tells where a file's content lives.
type Position int

const (
	PositionLocal Position = iota + 1
	PositionCloud
	PositionLocalAndCloud
)

func (p Position) String() string {
	switch p {
	case PositionLocal:
		return "local"
	case PositionCloud:
		return "cloud"
	case PositionLocalAndCloud:
		return "local_and_cloud"
	default:
		return "unknown"
	}
}

// IsLocal reports whether content is present on disk.
func (p Position) IsLocal() bool {
	return p != PositionCloud
}

// FileStatus is the upload status shown to users.
type FileStatus int

const (
	FileStatusToBeUploaded FileStatus = iota
	FileStatusUploading
	FileStatusUploadFailure
	FileStatusUploadSuccess
	FileStatusUnknown
)

// OperateType is the last local operation applied to a row.
type OperateType int

const (
	OperateUnknown OperateType = iota
	OperateCreate
	OperateDelete
	OperateRename
	OperateMove
	OperateRestore
)

// Values of the is_directory column.
const (
	IsFile      = 0
	IsDirectory = 1
)
