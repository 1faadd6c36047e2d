// Package record models remote cloud-disk records.
//
// A Record carries its identity and server metadata (version, delete flag,
// timestamps) plus a Fields map of typed values. Each Value is a tagged union
// over string, int64, bool, nested Fields and Asset references.
//
// Lookups distinguish two failure causes:
//   - ErrFieldMissing: the key is not present at all
//   - ErrWrongType: the key is present but holds another kind
//
// # Usage
//
//	rec := record.New("cloud-id")
//	rec.Fields[record.KeyFileName] = record.String("photo.jpg")
//	name, err := rec.Fields.GetString(record.KeyFileName)
package record
