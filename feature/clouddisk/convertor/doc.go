// Package convertor maps CloudDisk rows to cloud records and back.
//
// A Convertor is bound to one flow. The create and data-modify flows attach
// the cached content as an asset and fail with PathNotFound when it is
// absent. The delete flow emits sparse records carrying only identity and
// version. ToLocal serves the download (pull) flow and validates every
// field the local row needs.
//
// File names also yield local-only metadata (extension, MIME type, media
// type) that is stored in the row and never pushed.
//
// # Usage
//
//	create := convertor.New(convertor.FlowCreate, layout, "file", onErr)
//	records := create.RowsToRecords(ctx, rows)
//
//	values, err := convertor.New(convertor.FlowDownload, layout, "file", nil).ToLocal(rec)
package convertor
