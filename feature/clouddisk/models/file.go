package models

// File is the gorm model of the CloudDisk table. Engine code reads and
// writes rows as column maps; the struct exists for migrations and typed
// reads in tests and tools.
type File struct {
	ID               int64  `gorm:"column:id;primaryKey;autoIncrement"`
	CloudID          string `gorm:"column:cloud_id;uniqueIndex;not null"`
	IsDirectory      int    `gorm:"column:is_directory;default:0"`
	FileName         string `gorm:"column:file_name;not null;index:idx_parent_name,priority:2"`
	ParentCloudID    string `gorm:"column:parent_cloud_id;not null;index:idx_parent_name,priority:1"`
	FileSize         int64  `gorm:"column:file_size;default:0"`
	Sha256           string `gorm:"column:sha256"`
	TimeAdded        int64  `gorm:"column:time_added;default:0"`
	TimeEdited       int64  `gorm:"column:time_edited;default:0"`
	MetaTimeEdited   int64  `gorm:"column:meta_time_edited;default:0"`
	TimeRecycled     int64  `gorm:"column:time_recycled;default:0"`
	TimeVisit        int64  `gorm:"column:time_visit;default:0"`
	DirectlyRecycled bool   `gorm:"column:directly_recycled;default:false"`
	Version          int64  `gorm:"column:version;default:0"`
	OperateType      int    `gorm:"column:operate_type;default:0"`
	SyncStatus       int    `gorm:"column:sync_status;default:0"`
	Position         int    `gorm:"column:position;default:1"`
	DirtyType        int    `gorm:"column:dirty_type;default:1;index"`
	FileStatus       int    `gorm:"column:file_status;default:4"`
	IsFavorite       int    `gorm:"column:is_favorite;default:0"`
	MimeType         string `gorm:"column:mime_type"`
	FileType         int    `gorm:"column:file_type;default:0"`
	FileCategory     string `gorm:"column:file_category"`
}

// TableName implements gorm's tabler interface.
func (File) TableName() string {
	return TableName
}
