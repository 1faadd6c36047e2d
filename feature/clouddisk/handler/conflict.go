package handler

import (
	"context"
	"fmt"
	"strings"

	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/utils"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// splitName splits at the last dot. A name without a dot has no extension.
func splitName(fullName string) (base, ext string) {
	dot := strings.LastIndexByte(fullName, '.')
	if dot < 0 {
		return fullName, ""
	}
	return fullName[:dot], fullName[dot:]
}

func renamed(base string, n int, ext string) string {
	return fmt.Sprintf("%s(%d)%s", base, n, ext)
}

// freeName probes base(1)ext, base(2)ext, ... against the used names until
// one is free. fullName itself is the first candidate.
func freeName(fullName string, used map[string]string) (string, error) {
	base, ext := splitName(fullName)
	candidate := fullName
	for attempt := 1; ; attempt++ {
		if _, taken := used[candidate]; !taken {
			return candidate, nil
		}
		if attempt >= MaxRename {
			return "", fmt.Errorf("too many rename attempts for %q", fullName)
		}
		candidate = renamed(base, attempt, ext)
	}
}

// conflictPredicates selects live entries under parent named fullName,
// base(10)ext or base([1-9])ext.
func conflictPredicates(parent, fullName string) *rdb.Predicates {
	base, ext := splitName(fullName)
	return rdb.NewPredicates().
		EqualTo(models.ColParentCloudID, parent).
		EqualTo(models.ColTimeRecycled, 0).
		Group(func(g *rdb.Predicates) {
			g.EqualTo(models.ColFileName, fullName).
				Or().EqualTo(models.ColFileName, renamed(base, MaxRename, ext)).
				Or().Glob(models.ColFileName, rdb.EscapeGlob(base+"(")+"[1-9]"+rdb.EscapeGlob(")"+ext))
		})
}

// pullConflict makes room for an incoming entry: when a live sibling
// already holds its name, that sibling is renamed to the first free
// base(N)ext. The incoming entry keeps the name the cloud gave it. The name
// the incoming entry still holds counts as taken, since its dentry is only
// moved after the occupant.
func (h *Handler) pullConflict(ctx context.Context, cloudID string, values rdb.Values) error {
	if utils.ToInt64(values[models.ColTimeRecycled]) > 0 {
		return nil
	}
	fullName := utils.ToString(values[models.ColFileName])
	parent := utils.ToString(values[models.ColParentCloudID])

	rows, err := h.store.Query(ctx, conflictPredicates(parent, fullName),
		[]string{models.ColCloudID, models.ColFileName})
	if err != nil {
		return err
	}
	used := make(map[string]string, len(rows))
	occupant := ""
	for _, row := range rows {
		name, id := row.StringOr(models.ColFileName, ""), row.StringOr(models.ColCloudID, "")
		used[name] = id
		if name == fullName && id != cloudID {
			occupant = id
		}
	}
	if occupant == "" {
		return nil
	}

	newName, err := freeName(fullName, used)
	if err != nil {
		h.log.Warn("Conflict rename exhausted", zap.String("cloud_id", cloudID), zap.String("name", fullName))
		return reconcile.InvalidArgument(models.ColFileName, cloudID, "%w", err)
	}
	return h.conflictRename(ctx, occupant, parent, fullName, newName)
}

// conflictRename renames the occupant row and its dentry in one
// transaction and bumps its meta edit time. A failed commit renames the
// dentry back.
func (h *Handler) conflictRename(ctx context.Context, cloudID, parent, oldName, newName string) error {
	values := rdb.Values{
		models.ColFileName:       newName,
		models.ColMetaTimeEdited: h.nowMillis(),
	}
	err := h.commit(ctx, "conflict_rename", func(tx rdb.Store, undo *undoLog) error {
		n, err := tx.Update(ctx, values, whereID(cloudID))
		if err != nil {
			return err
		}
		if n == 0 {
			return reconcile.InvalidArgument(models.ColCloudID, cloudID, "conflicting row vanished")
		}
		old, err := h.dentries.Lookup(ctx, parent, oldName)
		if err != nil {
			metrics.RecordRollback("conflict_rename")
			return reconcile.DentryFault("lookup", cloudID, err)
		}
		snap := *old
		if err := h.dentries.Rename(ctx, old, parent, newName); err != nil {
			metrics.RecordRollback("conflict_rename")
			return reconcile.DentryFault("rename", cloudID, err)
		}
		undo.restore(h, cloudID, &snap, slot{parent: parent, name: oldName, rowID: snap.RowID},
			slot{parent: parent, name: newName, rowID: snap.RowID})
		return nil
	})
	if err != nil {
		return err
	}
	metrics.RecordConflictRename()
	h.log.Info("Renamed conflicting entry",
		zap.String("cloud_id", cloudID),
		zap.String("from", oldName),
		zap.String("to", newName),
	)
	h.notify(ctx, notify.OpPull, cloudID, notify.TypeUpdated, nil)
	return nil
}
