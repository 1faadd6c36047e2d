package handler

import (
	"context"
	"fmt"
	"testing"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/feature/clouddisk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanAction(t *testing.T) {
	a, err := ParseCleanAction("clear")
	require.NoError(t, err)
	assert.Equal(t, CleanClearData, a)

	a, err = ParseCleanAction("retain")
	require.NoError(t, err)
	assert.Equal(t, CleanRetainData, a)

	_, err = ParseCleanAction("wipe")
	assert.Error(t, err)
}

func TestClean_ClearData(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	local := env.writeContent(t, "LOCAL", "a")
	both := env.writeContent(t, "BOTH", "b")
	env.seed(t, seedRow{id: "LOCAL", name: "local.pdf", dirty: models.DirtyNew})
	env.seed(t, seedRow{id: "BOTH", name: "both.pdf", position: models.PositionLocalAndCloud})
	env.seed(t, seedRow{id: "CLOUD", name: "cloud.pdf", position: models.PositionCloud})
	env.seed(t, seedRow{id: "BIN", name: "bin.pdf", position: models.PositionCloud, recycled: 4})
	env.h.createFailed["LOCAL"] = struct{}{}

	require.NoError(t, env.h.Clean(ctx, CleanClearData))

	var count int64
	require.NoError(t, env.db.Model(&models.File{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.NoFileExists(t, local)
	assert.NoFileExists(t, both)

	st, err := env.dentries.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, dentry.Stats{}, st)
	assert.Empty(t, env.h.createFailed)
}

func TestClean_ClearDataInBatches(t *testing.T) {
	env := setupHandler(t)
	for i := 0; i < CleanBatch+5; i++ {
		id := fmt.Sprintf("F%04d", i)
		env.seed(t, seedRow{id: id, name: id})
	}

	require.NoError(t, env.h.Clean(context.Background(), CleanClearData))

	var count int64
	require.NoError(t, env.db.Model(&models.File{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClean_RetainData(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	local := env.writeContent(t, "LOCAL", "a")
	both := env.writeContent(t, "BOTH", "b")
	env.seed(t, seedRow{id: "LOCAL", name: "local.pdf", dirty: models.DirtyNew})
	env.seed(t, seedRow{id: "BOTH", name: "both.pdf", position: models.PositionLocalAndCloud, version: 7})
	env.seed(t, seedRow{id: "CLOUD", name: "cloud.pdf", position: models.PositionCloud, version: 2})
	binRow := env.seed(t, seedRow{id: "BIN", name: "bin.pdf", position: models.PositionCloud, recycled: 4})

	require.NoError(t, env.h.Clean(ctx, CleanRetainData))

	_, ok := env.file(t, "CLOUD")
	assert.False(t, ok)
	_, ok = env.file(t, "BIN")
	assert.False(t, ok)
	_, err := env.dentries.Lookup(ctx, "root", "cloud.pdf")
	assert.ErrorIs(t, err, dentry.ErrNotFound)
	_, err = env.dentries.LookupRecycled(ctx, "bin.pdf", "root", binRow)
	assert.ErrorIs(t, err, dentry.ErrNotFound)

	b, ok := env.file(t, "BOTH")
	require.True(t, ok)
	assert.Equal(t, int(models.PositionLocal), b.Position)
	assert.Equal(t, int(models.DirtyNew), b.DirtyType)
	assert.Equal(t, int64(0), b.Version)
	assert.FileExists(t, both)
	e, err := env.dentries.Lookup(ctx, "root", "both.pdf")
	require.NoError(t, err)
	assert.Equal(t, dentry.PositionLocal, e.Position)

	l, ok := env.file(t, "LOCAL")
	require.True(t, ok)
	assert.Equal(t, int(models.PositionLocal), l.Position)
	assert.FileExists(t, local)

	recs, err := env.h.GetCreatedRecords(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"LOCAL", "BOTH"}, ids(recs))
}

func TestClean_UnknownAction(t *testing.T) {
	env := setupHandler(t)
	assert.Error(t, env.h.Clean(context.Background(), CleanAction(9)))
}
