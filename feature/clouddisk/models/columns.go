package models

// TableName is the local table holding one row per cloud-disk entry.
const TableName = "CloudDisk"

// Column names of the CloudDisk table.
const (
	ColRowID            = "id"
	ColCloudID          = "cloud_id"
	ColIsDirectory      = "is_directory"
	ColFileName         = "file_name"
	ColParentCloudID    = "parent_cloud_id"
	ColFileSize         = "file_size"
	ColSha256           = "sha256"
	ColTimeAdded        = "time_added"
	ColTimeEdited       = "time_edited"
	ColMetaTimeEdited   = "meta_time_edited"
	ColTimeRecycled     = "time_recycled"
	ColTimeVisit        = "time_visit"
	ColDirectlyRecycled = "directly_recycled"
	ColVersion          = "version"
	ColOperateType      = "operate_type"
	ColSyncStatus       = "sync_status"
	ColPosition         = "position"
	ColDirtyType        = "dirty_type"
	ColFileStatus       = "file_status"
	ColIsFavorite       = "is_favorite"
	ColMimeType         = "mime_type"
	ColFileType         = "file_type"
	ColFileCategory     = "file_category"
)

// AllColumns lists every column of the table.
var AllColumns = []string{
	ColRowID, ColCloudID, ColIsDirectory, ColFileName, ColParentCloudID,
	ColFileSize, ColSha256, ColTimeAdded, ColTimeEdited, ColMetaTimeEdited,
	ColTimeRecycled, ColTimeVisit, ColDirectlyRecycled, ColVersion,
	ColOperateType, ColSyncStatus, ColPosition, ColDirtyType, ColFileStatus,
	ColIsFavorite, ColMimeType, ColFileType, ColFileCategory,
}

// PullQueryColumns are read when matching pulled records to local rows.
var PullQueryColumns = []string{
	ColRowID, ColCloudID, ColIsDirectory, ColFileName, ColParentCloudID,
	ColFileSize, ColSha256, ColTimeEdited, ColMetaTimeEdited, ColTimeRecycled,
	ColVersion, ColPosition, ColDirtyType,
}

// UploadColumns are read when building outgoing records.
var UploadColumns = []string{
	ColCloudID, ColIsDirectory, ColFileName, ColParentCloudID, ColFileSize,
	ColSha256, ColTimeAdded, ColTimeEdited, ColMetaTimeEdited, ColTimeRecycled,
	ColDirectlyRecycled, ColVersion, ColOperateType,
}

// AckColumns are read when handling server acknowledgements.
var AckColumns = []string{
	ColRowID, ColCloudID, ColFileName, ColParentCloudID, ColTimeEdited,
	ColMetaTimeEdited, ColTimeRecycled,
}
