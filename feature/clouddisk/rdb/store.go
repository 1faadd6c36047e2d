package rdb

import (
	"context"
	"errors"
	"fmt"

	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/models"

	"gorm.io/gorm"
)

// Store is the relational view of the CloudDisk table. Every error it
// returns for a failed statement is a reconcile StoreFault.
type Store interface {
	Query(ctx context.Context, p *Predicates, columns []string) ([]Row, error)
	Count(ctx context.Context, p *Predicates) (int64, error)
	// Insert adds one row and returns its row id.
	Insert(ctx context.Context, values Values) (int64, error)
	// Update changes matching rows and returns how many were affected.
	Update(ctx context.Context, values Values, p *Predicates) (int64, error)
	// Delete removes matching rows. A nil or empty selection removes all.
	Delete(ctx context.Context, p *Predicates) (int64, error)
	// GroupCount counts rows per distinct value of an integer column.
	GroupCount(ctx context.Context, column string) (map[int64]int64, error)
	// Transaction runs fn against a transaction-bound Store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GormStore implements Store over a gorm connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the CloudDisk table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.File{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", models.TableName, err)
	}
	return nil
}

func (s *GormStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.File{})
}

func (s *GormStore) fresh() *gorm.DB {
	return s.db.Session(&gorm.Session{NewDB: true})
}

func (s *GormStore) Query(ctx context.Context, p *Predicates, columns []string) ([]Row, error) {
	q := s.table(ctx)
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	var out []map[string]any
	if err := p.apply(q, s.fresh()).Find(&out).Error; err != nil {
		return nil, reconcile.StoreFault("query", err)
	}
	rows := make([]Row, len(out))
	for i, m := range out {
		rows[i] = Row(m)
	}
	return rows, nil
}

func (s *GormStore) Count(ctx context.Context, p *Predicates) (int64, error) {
	var n int64
	if err := p.apply(s.table(ctx), s.fresh()).Count(&n).Error; err != nil {
		return 0, reconcile.StoreFault("count", err)
	}
	return n, nil
}

func (s *GormStore) Insert(ctx context.Context, values Values) (int64, error) {
	cloudID, ok := values[models.ColCloudID]
	if !ok {
		return 0, reconcile.StoreFault("insert", errors.New("cloud_id is required"))
	}
	if err := s.table(ctx).Create(map[string]any(values)).Error; err != nil {
		return 0, reconcile.StoreFault("insert", err)
	}
	var rowID int64
	err := s.table(ctx).Select(models.ColRowID).Where(models.ColCloudID+" = ?", cloudID).Scan(&rowID).Error
	if err != nil {
		return 0, reconcile.StoreFault("insert", fmt.Errorf("failed to read row id: %w", err))
	}
	return rowID, nil
}

func (s *GormStore) Update(ctx context.Context, values Values, p *Predicates) (int64, error) {
	q := s.table(ctx)
	if !p.hasConditions() {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := p.apply(q, s.fresh()).Updates(map[string]any(values))
	if res.Error != nil {
		return 0, reconcile.StoreFault("update", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Delete(ctx context.Context, p *Predicates) (int64, error) {
	q := s.db.WithContext(ctx)
	if !p.hasConditions() {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := p.apply(q, s.fresh()).Delete(&models.File{})
	if res.Error != nil {
		return 0, reconcile.StoreFault("delete", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) GroupCount(ctx context.Context, column string) (map[int64]int64, error) {
	var rows []struct {
		Value int64
		Total int64
	}
	err := s.table(ctx).
		Select(column + " AS value, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, reconcile.StoreFault("group count", err)
	}
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.Value] = r.Total
	}
	return out, nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&GormStore{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed
		return reconcile.StoreFault("transaction", err)
	}
	return err
}
