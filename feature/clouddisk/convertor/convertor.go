package convertor

import (
	"context"
	"os"

	"clouddisk-sync/core/fileutil"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"
)

// Flow is the sync direction a Convertor serves.
type Flow int

const (
	FlowCreate Flow = iota
	FlowDelete
	FlowMetaModify
	FlowDataModify
	FlowDownload
)

func (f Flow) String() string {
	switch f {
	case FlowCreate:
		return "create"
	case FlowDelete:
		return "delete"
	case FlowMetaModify:
		return "meta_modify"
	case FlowDataModify:
		return "data_modify"
	case FlowDownload:
		return "download"
	default:
		return "unknown"
	}
}

// ErrHandler is told about every row that failed conversion.
type ErrHandler func(row rdb.Row, err error)

// Convertor maps CloudDisk rows to records and back for one flow.
type Convertor struct {
	flow       Flow
	layout     fileutil.Layout
	recordType string
	onErr      ErrHandler
}

// New returns a Convertor. onErr may be nil.
func New(flow Flow, layout fileutil.Layout, recordType string, onErr ErrHandler) *Convertor {
	if recordType == "" {
		recordType = record.TypeFile
	}
	return &Convertor{flow: flow, layout: layout, recordType: recordType, onErr: onErr}
}

func (c *Convertor) Flow() Flow { return c.flow }

func (c *Convertor) withAsset() bool {
	return c.flow == FlowCreate || c.flow == FlowDataModify
}

func required(row rdb.Row, col, cloudID string) (int64, error) {
	n, err := row.Int64(col)
	if err != nil {
		return 0, reconcile.InvalidArgument(col, cloudID, "%w", err)
	}
	return n, nil
}

// ToRecord builds the outgoing record of row. The extension-derived
// columns are written back into row; they never reach the record.
func (c *Convertor) ToRecord(row rdb.Row) (*record.Record, error) {
	cloudID, err := row.String(models.ColCloudID)
	if err != nil || cloudID == "" {
		if err == nil {
			err = rdb.ErrNullValue
		}
		return nil, reconcile.InvalidArgument(models.ColCloudID, "", "%w", err)
	}
	createTime, err := required(row, models.ColTimeAdded, cloudID)
	if err != nil {
		return nil, err
	}
	metaEdited, err := required(row, models.ColMetaTimeEdited, cloudID)
	if err != nil {
		return nil, err
	}
	version, err := required(row, models.ColVersion, cloudID)
	if err != nil {
		return nil, err
	}

	rec := record.New(cloudID)
	rec.Type = c.recordType
	rec.Version = version
	rec.CreateTime = createTime
	rec.EditedTime = row.Int64Or(models.ColTimeEdited, 0)

	if c.flow == FlowDelete {
		rec.IsDelete = true
		return rec, nil
	}

	name, err := row.String(models.ColFileName)
	if err != nil {
		return nil, reconcile.InvalidArgument(models.ColFileName, cloudID, "%w", err)
	}
	parent, err := row.String(models.ColParentCloudID)
	if err != nil {
		return nil, reconcile.InvalidArgument(models.ColParentCloudID, cloudID, "%w", err)
	}
	isDir := row.Int64Or(models.ColIsDirectory, models.IsFile) == models.IsDirectory
	recycled := row.Int64Or(models.ColTimeRecycled, 0)

	f := rec.Fields
	f[record.KeyFileName] = record.String(name)
	f[record.KeyParentFolder] = record.String(parent)
	f[record.KeyDirectlyRecycled] = record.Bool(row.Int64Or(models.ColDirectlyRecycled, 0) != 0)
	f[record.KeyIsRecycled] = record.Bool(recycled > 0)
	f[record.KeyTimeRecycled] = record.Int(recycled)
	f[record.KeyAttributes] = record.Map(record.Fields{
		record.KeyTimeAdded:      record.Int(createTime),
		record.KeyTimeEdited:     record.Int(rec.EditedTime),
		record.KeyMetaTimeEdited: record.Int(metaEdited),
	})

	if isDir {
		f[record.KeyIsDirectory] = record.String(record.TypeDirectory)
	} else {
		f[record.KeyIsDirectory] = record.String(record.TypeFile)
		size := row.Int64Or(models.ColFileSize, 0)
		sha := row.StringOr(models.ColSha256, "")
		f[record.KeySize] = record.Int(size)
		f[record.KeySha256] = record.String(sha)

		if c.withAsset() {
			path := c.layout.ContentPath(cloudID)
			info, err := os.Stat(path)
			if err != nil {
				return nil, reconcile.PathNotFound(path, cloudID, err)
			}
			f[record.KeyContent] = record.AssetRef(record.Asset{
				Name: name,
				Path: path,
				Size: info.Size(),
				Hash: sha,
			})
		}
	}

	if info, ok := DeriveMime(name); ok {
		row[models.ColFileCategory] = info.Extension
		row[models.ColMimeType] = info.MimeType
		row[models.ColFileType] = info.MediaType
	}
	if c.flow == FlowCreate {
		rec.IsNewCreate = true
	}
	return rec, nil
}

// ToLocal extracts the column values of rec. Deletions only carry the id.
func (c *Convertor) ToLocal(rec *record.Record) (rdb.Values, error) {
	values := rdb.Values{models.ColCloudID: rec.ID}
	if rec.IsDelete {
		return values, nil
	}
	f := rec.Fields

	name, err := f.GetString(record.KeyFileName)
	if err != nil {
		return nil, reconcile.InvalidArgument(record.KeyFileName, rec.ID, "%w", err)
	}
	if info, ok := DeriveMime(name); ok {
		values[models.ColFileCategory] = info.Extension
		values[models.ColMimeType] = info.MimeType
		values[models.ColFileType] = info.MediaType
	}
	values[models.ColFileName] = name

	parent, err := f.GetString(record.KeyParentFolder)
	if err != nil {
		return nil, reconcile.InvalidArgument(record.KeyParentFolder, rec.ID, "%w", err)
	}
	values[models.ColParentCloudID] = parent

	directly, err := f.GetBool(record.KeyDirectlyRecycled)
	if err != nil {
		return nil, reconcile.InvalidArgument(record.KeyDirectlyRecycled, rec.ID, "%w", err)
	}
	values[models.ColDirectlyRecycled] = directly

	kind, err := f.GetString(record.KeyIsDirectory)
	if err != nil {
		return nil, reconcile.InvalidArgument(record.KeyIsDirectory, rec.ID, "%w", err)
	}
	switch kind {
	case record.TypeFile:
		sha, err := f.GetString(record.KeySha256)
		if err != nil {
			return nil, reconcile.InvalidArgument(record.KeySha256, rec.ID, "%w", err)
		}
		size, err := f.GetInt(record.KeySize)
		if err != nil {
			return nil, reconcile.InvalidArgument(record.KeySize, rec.ID, "%w", err)
		}
		values[models.ColSha256] = sha
		values[models.ColFileSize] = size
		values[models.ColIsDirectory] = models.IsFile
	case record.TypeDirectory:
		values[models.ColIsDirectory] = models.IsDirectory
	default:
		return nil, reconcile.InvalidArgument(record.KeyIsDirectory, rec.ID, "unknown entry type %q", kind)
	}

	values[models.ColVersion] = rec.Version
	CompensateAttributes(rec, values)

	recycled, err := RecycledTime(rec)
	if err != nil {
		return nil, err
	}
	values[models.ColTimeRecycled] = recycled
	return values, nil
}

// RecycledTime reads the recycle time of rec. The isRecycled flag is
// required; the time itself only when the flag is set.
func RecycledTime(rec *record.Record) (int64, error) {
	isRecycled, err := rec.Fields.GetBool(record.KeyIsRecycled)
	if err != nil {
		return 0, reconcile.InvalidArgument(record.KeyIsRecycled, rec.ID, "%w", err)
	}
	if !isRecycled {
		return 0, nil
	}
	t, err := rec.Fields.GetInt(record.KeyTimeRecycled)
	if err != nil {
		return 0, reconcile.InvalidArgument(record.KeyTimeRecycled, rec.ID, "%w", err)
	}
	return t, nil
}

// CompensateAttributes fills the timestamp columns from the attributes map,
// falling back to the record's server times for absent entries.
func CompensateAttributes(rec *record.Record, values rdb.Values) {
	attrs := rec.Attributes()
	pick := func(key string, fallback int64) int64 {
		if attrs == nil {
			return fallback
		}
		if n, err := attrs.GetInt(key); err == nil {
			return n
		}
		return fallback
	}
	values[models.ColTimeAdded] = pick(record.KeyTimeAdded, rec.CreateTime)
	values[models.ColTimeEdited] = pick(record.KeyTimeEdited, rec.EditedTime)
	values[models.ColMetaTimeEdited] = pick(record.KeyMetaTimeEdited, rec.EditedTime)
}

// RowsToRecords converts rows in order. Rows that fail are reported to the
// error handler and skipped. A canceled ctx stops the loop early.
func (c *Convertor) RowsToRecords(ctx context.Context, rows []rdb.Row) []*record.Record {
	out := make([]*record.Record, 0, len(rows))
	for _, row := range rows {
		if reconcile.Stopped(ctx) {
			break
		}
		rec, err := c.ToRecord(row)
		if err != nil {
			if c.onErr != nil {
				c.onErr(row, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}
