package record

// Field keys carried by cloud-disk records.
const (
	KeyFileName         = "fileName"
	KeyParentFolder     = "parentFolder"
	KeyIsDirectory      = "isDirectory"
	KeySize             = "size"
	KeySha256           = "sha256"
	KeyDirectlyRecycled = "directlyRecycled"
	KeyIsRecycled       = "isRecycled"
	KeyTimeRecycled     = "fileTimeRecycled"
	KeyAttributes       = "attributes"
	KeyContent          = "content"

	// Keys inside the attributes map.
	KeyTimeAdded      = "fileTimeAdded"
	KeyTimeEdited     = "fileTimeEdited"
	KeyMetaTimeEdited = "metaTimeEdited"

	KeyVersion = "version"
	KeyID      = "id"
)

// Values of the isDirectory field.
const (
	TypeDirectory = "directory"
	TypeFile      = "file"
)

// Record is the remote-side unit of sync. The engine only ever holds
// transient copies.
type Record struct {
	ID          string `json:"id"`
	Type        string `json:"record_type,omitempty"`
	Version     int64  `json:"version"`
	IsDelete    bool   `json:"is_delete,omitempty"`
	IsNewCreate bool   `json:"is_new_create,omitempty"`
	// CreateTime and EditedTime are server timestamps in milliseconds.
	CreateTime int64  `json:"create_time,omitempty"`
	EditedTime int64  `json:"edited_time,omitempty"`
	Fields     Fields `json:"fields,omitempty"`
}

// New returns an empty record for id.
func New(id string) *Record {
	return &Record{ID: id, Fields: Fields{}}
}

// Attributes returns the nested attributes map, or nil when absent or malformed.
func (r *Record) Attributes() Fields {
	if r == nil || r.Fields == nil {
		return nil
	}
	m, err := r.Fields.GetMap(KeyAttributes)
	if err != nil {
		return nil
	}
	return m
}

// Attribute reads an integer attribute.
func (r *Record) Attribute(key string) (int64, error) {
	attrs := r.Attributes()
	if attrs == nil {
		return 0, ErrFieldMissing
	}
	return attrs.GetInt(key)
}
