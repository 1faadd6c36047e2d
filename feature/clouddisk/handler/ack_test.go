package handler

import (
	"context"
	"testing"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ackRecord(id string, version, edited, meta int64) *record.Record {
	rec := record.New(id)
	rec.Version = version
	rec.Fields[record.KeyAttributes] = record.Map(record.Fields{
		record.KeyTimeEdited:     record.Int(edited),
		record.KeyMetaTimeEdited: record.Int(meta),
	})
	return rec
}

func withContent(rec *record.Record, size int64, hash string) *record.Record {
	rec.Fields[record.KeyContent] = record.AssetRef(record.Asset{Size: size, Hash: hash})
	return rec
}

func TestDecideDirty(t *testing.T) {
	local := ackLocal{edited: 10, metaEdited: 20}
	tests := []struct {
		name string
		rec  *record.Record
		want models.DirtyType
	}{
		{"unchanged", ackRecord("A", 1, 10, 20), models.DirtySynced},
		{"meta edited in flight", ackRecord("A", 1, 10, 21), models.DirtyMdirty},
		{"content edited in flight", ackRecord("A", 1, 11, 20), models.DirtyFdirty},
		{"both edited", ackRecord("A", 1, 11, 21), models.DirtyFdirty},
		{"no attributes", record.New("A"), models.DirtySynced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decideDirty(tt.rec, local))
		})
	}
}

func TestOnCreateRecords(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	env.seed(t, seedRow{id: "OK", name: "ok.pdf", dirty: models.DirtyNew, edited: 100, meta: 200})
	env.seed(t, seedRow{id: "EDITED", name: "edited.pdf", dirty: models.DirtyNew, edited: 150, meta: 200})
	env.seed(t, seedRow{id: "REJECTED", name: "rejected.pdf", dirty: models.DirtyNew})

	err := env.h.OnCreateRecords(ctx, map[string]AckResult{
		"OK":       {Record: withContent(ackRecord("OK", 1, 100, 200), 42, "hash")},
		"EDITED":   {Record: ackRecord("EDITED", 1, 100, 200)},
		"REJECTED": {Err: errBoom},
		"VANISHED": {Record: ackRecord("VANISHED", 1, 0, 0)},
	})
	require.NoError(t, err)

	ok, _ := env.file(t, "OK")
	assert.Equal(t, int(models.DirtySynced), ok.DirtyType)
	assert.Equal(t, int(models.PositionLocalAndCloud), ok.Position)
	assert.Equal(t, int(models.FileStatusUploadSuccess), ok.FileStatus)
	assert.Equal(t, int64(1), ok.Version)
	assert.Equal(t, int64(42), ok.FileSize)
	assert.Equal(t, "hash", ok.Sha256)

	e, err := env.dentries.Lookup(ctx, "root", "ok.pdf")
	require.NoError(t, err)
	assert.Equal(t, dentry.PositionLocalAndCloud, e.Position)
	assert.Equal(t, int64(42), e.Size)

	edited, _ := env.file(t, "EDITED")
	assert.Equal(t, int(models.DirtyFdirty), edited.DirtyType)
	assert.Equal(t, int(models.PositionLocalAndCloud), edited.Position)

	rejected, _ := env.file(t, "REJECTED")
	assert.Equal(t, int(models.DirtyNew), rejected.DirtyType)
	assert.Equal(t, int(models.FileStatusUploadFailure), rejected.FileStatus)
	assert.Equal(t, []notify.Type{notify.TypeModified}, env.sink.types("REJECTED"))

	assert.Contains(t, env.h.createFailed, "REJECTED")
	assert.NotContains(t, env.h.createFailed, "OK")
	assert.NotContains(t, env.h.createFailed, "VANISHED")
}

func TestOnCreateRecords_StoreFaultAborts(t *testing.T) {
	env := setupHandler(t, func(o *Options) {
		o.Store = faultStore{Store: o.Store}
	})
	env.seed(t, seedRow{id: "A", name: "a.pdf", dirty: models.DirtyNew})
	env.seed(t, seedRow{id: "B", name: "b.pdf", dirty: models.DirtyNew})

	err := env.h.OnCreateRecords(context.Background(), map[string]AckResult{
		"A": {Record: ackRecord("A", 1, 0, 0)},
		"B": {Record: ackRecord("B", 1, 0, 0)},
	})
	require.Error(t, err)
	assert.Equal(t, reconcile.KindStoreFault, reconcile.KindOf(err))
	assert.Contains(t, env.h.createFailed, "A")
	assert.NotContains(t, env.h.createFailed, "B")
}

func TestOnCreateRecords_Stopped(t *testing.T) {
	env := setupHandler(t)
	env.seed(t, seedRow{id: "A", name: "a.pdf", dirty: models.DirtyNew})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.h.OnCreateRecords(ctx, map[string]AckResult{"A": {Record: ackRecord("A", 1, 0, 0)}})
	require.NoError(t, err)

	f, _ := env.file(t, "A")
	assert.Equal(t, int(models.DirtyNew), f.DirtyType)
}

func TestOnModifyRecords(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	env.seed(t, seedRow{id: "META", name: "meta.pdf", dirty: models.DirtyMdirty, edited: 10, meta: 20, version: 1})
	env.seed(t, seedRow{id: "AGAIN", name: "again.pdf", dirty: models.DirtyMdirty, edited: 10, meta: 25, version: 1})
	env.seed(t, seedRow{id: "BAD", name: "bad.pdf", dirty: models.DirtyMdirty, version: 1})

	bad := record.New("BAD")
	bad.Version = 2
	err := env.h.OnModifyMdirtyRecords(ctx, map[string]AckResult{
		"META":  {Record: ackRecord("META", 2, 10, 20)},
		"AGAIN": {Record: ackRecord("AGAIN", 2, 10, 20)},
		"BAD":   {Record: bad},
	})
	require.NoError(t, err)

	meta, _ := env.file(t, "META")
	assert.Equal(t, int(models.DirtySynced), meta.DirtyType)
	assert.Equal(t, int64(2), meta.Version)
	assert.Equal(t, int(models.FileStatusUploadSuccess), meta.FileStatus)

	again, _ := env.file(t, "AGAIN")
	assert.Equal(t, int(models.DirtyMdirty), again.DirtyType)
	assert.Equal(t, int64(2), again.Version)

	badRow, _ := env.file(t, "BAD")
	assert.Equal(t, int64(1), badRow.Version)
	assert.Contains(t, env.h.modifyFailed, "BAD")
}

func TestOnModifyFdirtyRecords(t *testing.T) {
	env := setupHandler(t)
	env.seed(t, seedRow{id: "F", name: "f.pdf", dirty: models.DirtyFdirty, edited: 10, meta: 20, size: 1, version: 1})
	env.seed(t, seedRow{id: "X", name: "x.pdf", dirty: models.DirtyFdirty, version: 1})

	err := env.h.OnModifyFdirtyRecords(context.Background(), map[string]AckResult{
		"F": {Record: withContent(ackRecord("F", 5, 10, 20), 9, "new-hash")},
		"X": {Err: errBoom},
	})
	require.NoError(t, err)

	f, _ := env.file(t, "F")
	assert.Equal(t, int(models.DirtySynced), f.DirtyType)
	assert.Equal(t, int64(5), f.Version)
	assert.Equal(t, int64(9), f.FileSize)
	assert.Equal(t, "new-hash", f.Sha256)

	x, _ := env.file(t, "X")
	assert.Equal(t, int(models.DirtyFdirty), x.DirtyType)
	assert.Equal(t, int(models.FileStatusUploadFailure), x.FileStatus)
	assert.Contains(t, env.h.modifyFailed, "X")
}

func TestOnDeleteRecords(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	rowID := env.seed(t, seedRow{id: "DEL", name: "del.pdf", dirty: models.DirtyDeleted, recycled: 9})
	env.seed(t, seedRow{id: "KEEP", name: "keep.pdf", dirty: models.DirtyDeleted, recycled: 9})

	err := env.h.OnDeleteRecords(ctx, map[string]AckResult{
		"DEL":  {Record: deleteRecord("DEL", 3)},
		"KEEP": {Err: errBoom},
	})
	require.NoError(t, err)

	_, ok := env.file(t, "DEL")
	assert.False(t, ok)
	_, err = env.dentries.LookupRecycled(ctx, "del.pdf", "root", rowID)
	assert.ErrorIs(t, err, dentry.ErrNotFound)
	assert.Equal(t, []notify.Type{notify.TypeDeleted}, env.sink.types("DEL"))

	keep, ok := env.file(t, "KEEP")
	require.True(t, ok)
	assert.Equal(t, int(models.DirtyDeleted), keep.DirtyType)
	assert.Contains(t, env.h.modifyFailed, "KEEP")

	recs, err := env.h.GetDeletedRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
