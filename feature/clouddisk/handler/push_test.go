package handler

import (
	"context"
	"testing"

	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(recs []*record.Record) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.ID)
	}
	return out
}

func TestGetCreatedRecords(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	env.writeContent(t, "F", "hello")
	env.seed(t, seedRow{id: "F", name: "f.pdf", dirty: models.DirtyNew, size: 5, sha: "h"})
	env.seed(t, seedRow{id: "D", name: "docs", dir: true, dirty: models.DirtyNew})
	env.seed(t, seedRow{id: "GONE", name: "g.pdf", dirty: models.DirtyNew})
	env.seed(t, seedRow{id: "BIN", name: "old.pdf", dirty: models.DirtyNew, recycled: 3})
	env.seed(t, seedRow{id: "S", name: "s.pdf"})

	recs, err := env.h.GetCreatedRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "F"}, ids(recs))
	for _, rec := range recs {
		assert.True(t, rec.IsNewCreate)
	}

	asset, err := recs[1].Fields.GetAsset(record.KeyContent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), asset.Size)
	assert.Equal(t, env.layout.ContentPath("F"), asset.Path)

	f, _ := env.file(t, "F")
	assert.Equal(t, int(models.FileStatusUploading), f.FileStatus)
	assert.Equal(t, "application/pdf", f.MimeType)
	assert.Equal(t, "pdf", f.FileCategory)
	assert.Equal(t, []notify.Type{notify.TypeModified}, env.sink.types("F"))

	assert.Contains(t, env.h.createFailed, "GONE")
	g, _ := env.file(t, "GONE")
	assert.Equal(t, int(models.FileStatusUnknown), g.FileStatus)
}

func TestGetCreatedRecords_SkipsFailedBatches(t *testing.T) {
	env := setupHandler(t)
	env.seed(t, seedRow{id: "GONE1", name: "a.pdf", dirty: models.DirtyNew})
	env.seed(t, seedRow{id: "GONE2", name: "b.pdf", dirty: models.DirtyNew})

	recs, err := env.h.GetCreatedRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Len(t, env.h.createFailed, 2)

	env.h.Reset()
	assert.Empty(t, env.h.createFailed)
}

func TestGetCreatedRecords_LoopsPastFailures(t *testing.T) {
	env := setupHandler(t)
	for _, id := range []string{"G1", "G2", "G3", "G4", "G5"} {
		env.seed(t, seedRow{id: id, name: id + ".pdf", dirty: models.DirtyNew})
	}
	env.writeContent(t, "OK", "x")
	env.seed(t, seedRow{id: "OK", name: "ok.pdf", dirty: models.DirtyNew, size: 1})
	// OK sorts after the five broken rows, so the first batch converts nothing
	require.NoError(t, env.db.Model(&models.File{}).Where("cloud_id = ?", "OK").
		Update(models.ColTimeAdded, 99).Error)

	recs, err := env.h.GetCreatedRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"OK"}, ids(recs))
	assert.Len(t, env.h.createFailed, 5)
}

func TestGetFileModifiedRecords(t *testing.T) {
	env := setupHandler(t)
	env.writeContent(t, "BIG", "0123456789")
	env.writeContent(t, "SMALL", "0")
	env.seed(t, seedRow{id: "BIG", name: "big.pdf", dirty: models.DirtyFdirty, size: 10, version: 2})
	env.seed(t, seedRow{id: "SMALL", name: "small.pdf", dirty: models.DirtyFdirty, size: 1, version: 4})
	env.seed(t, seedRow{id: "META", name: "meta.pdf", dirty: models.DirtyMdirty})

	recs, err := env.h.GetFileModifiedRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SMALL", "BIG"}, ids(recs))
	assert.Equal(t, int64(4), recs[0].Version)
	assert.False(t, recs[0].IsNewCreate)

	f, _ := env.file(t, "BIG")
	assert.Equal(t, int(models.FileStatusUploading), f.FileStatus)
}

func TestGetMetaModifiedRecords(t *testing.T) {
	env := setupHandler(t)
	env.seed(t, seedRow{id: "META", name: "meta.pdf", dirty: models.DirtyMdirty, version: 3})
	env.seed(t, seedRow{id: "FAILED", name: "failed.pdf", dirty: models.DirtyMdirty})
	env.h.modifyFailed["FAILED"] = struct{}{}

	recs, err := env.h.GetMetaModifiedRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "META", recs[0].ID)
	assert.False(t, recs[0].Fields.Has(record.KeyContent))

	name, err := recs[0].Fields.GetString(record.KeyFileName)
	require.NoError(t, err)
	assert.Equal(t, "meta.pdf", name)
}

func TestGetDeletedRecords(t *testing.T) {
	env := setupHandler(t)
	env.seed(t, seedRow{id: "DEL", name: "del.pdf", dirty: models.DirtyDeleted, version: 6, recycled: 9})
	env.seed(t, seedRow{id: "NEW", name: "new.pdf", dirty: models.DirtyNew})

	recs, err := env.h.GetDeletedRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "DEL", recs[0].ID)
	assert.True(t, recs[0].IsDelete)
	assert.Equal(t, int64(6), recs[0].Version)
	assert.Empty(t, recs[0].Fields)
}

func TestGetRetryRecords_Limit(t *testing.T) {
	env := setupHandler(t)
	for i := 0; i < RetryLimit+3; i++ {
		id := string(rune('a'+i%26)) + string(rune('A'+i/26))
		env.seed(t, seedRow{id: id, name: id, dirty: models.DirtyRetry})
	}

	got, err := env.h.GetRetryRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, RetryLimit)
}
