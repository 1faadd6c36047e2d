package rdb_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"
	"clouddisk-sync/feature/clouddisk/rdb/rdbtest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func insert(t *testing.T, s rdb.Store, cloudID, parent, name string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), rdb.Values{
		models.ColCloudID:       cloudID,
		models.ColParentCloudID: parent,
		models.ColFileName:      name,
		models.ColDirtyType:     int(models.DirtySynced),
	})
	require.NoError(t, err)
	return id
}

func TestGormStore_InsertQuery(t *testing.T) {
	_, s := rdbtest.Open(t)
	ctx := context.Background()

	id1 := insert(t, s, "A", "root", "a.txt")
	id2 := insert(t, s, "B", "root", "b.txt")
	assert.NotZero(t, id1)
	assert.NotEqual(t, id1, id2)

	rows, err := s.Query(ctx, rdb.NewPredicates().In(models.ColCloudID, []string{"A", "B", "C"}).OrderByAsc(models.ColCloudID),
		[]string{models.ColRowID, models.ColCloudID, models.ColPosition, models.ColSha256})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got, err := rows[0].Int64(models.ColRowID)
	assert.NoError(t, err)
	assert.Equal(t, id1, got)
	pos, err := rows[0].Int(models.ColPosition)
	assert.NoError(t, err)
	assert.Equal(t, int(models.PositionLocal), pos, "column default")

	_, err = rows[0].String(models.ColSha256)
	assert.ErrorIs(t, err, rdb.ErrNullValue)
	_, err = rows[0].String(models.ColFileName)
	assert.ErrorIs(t, err, rdb.ErrColumnMissing)
}

func TestGormStore_InsertDuplicate(t *testing.T) {
	_, s := rdbtest.Open(t)
	insert(t, s, "A", "root", "a.txt")

	_, err := s.Insert(context.Background(), rdb.Values{
		models.ColCloudID: "A", models.ColParentCloudID: "root", models.ColFileName: "x",
	})
	assert.Equal(t, reconcile.KindStoreFault, reconcile.KindOf(err))
}

func TestGormStore_UpdateDelete(t *testing.T) {
	_, s := rdbtest.Open(t)
	ctx := context.Background()
	insert(t, s, "A", "root", "a.txt")
	insert(t, s, "B", "root", "b.txt")

	n, err := s.Update(ctx, rdb.Values{models.ColVersion: 9}, rdb.NewPredicates().EqualTo(models.ColCloudID, "A"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Update(ctx, rdb.Values{models.ColVersion: 9}, rdb.NewPredicates().EqualTo(models.ColCloudID, "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.Count(ctx, rdb.NewPredicates().EqualTo(models.ColVersion, 9))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	n, err = s.Delete(ctx, rdb.NewPredicates().EqualTo(models.ColCloudID, "A"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Delete(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGormStore_GroupAndGlob(t *testing.T) {
	_, s := rdbtest.Open(t)
	ctx := context.Background()
	for _, name := range []string{"doc.txt", "doc(1).txt", "doc(9).txt", "doc(10).txt", "doc(12).txt", "doc(a).txt"} {
		insert(t, s, name, "root", name)
	}

	p := rdb.NewPredicates().
		EqualTo(models.ColParentCloudID, "root").
		Group(func(g *rdb.Predicates) {
			g.EqualTo(models.ColFileName, "doc.txt").
				Or().EqualTo(models.ColFileName, "doc(10).txt").
				Or().Glob(models.ColFileName, rdb.EscapeGlob("doc(")+"[1-9]"+rdb.EscapeGlob(").txt"))
		})
	rows, err := s.Query(ctx, p, []string{models.ColFileName})
	require.NoError(t, err)

	var names []string
	for _, r := range rows {
		names = append(names, r.StringOr(models.ColFileName, ""))
	}
	assert.ElementsMatch(t, []string{"doc.txt", "doc(1).txt", "doc(9).txt", "doc(10).txt"}, names)

	groups, err := s.GroupCount(ctx, models.ColDirtyType)
	require.NoError(t, err)
	assert.EqualValues(t, 6, groups[int64(models.DirtySynced)])
}

func TestGormStore_NotInAndLimit(t *testing.T) {
	_, s := rdbtest.Open(t)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C", "D"} {
		insert(t, s, id, "root", id)
	}
	rows, err := s.Query(ctx, rdb.NewPredicates().NotIn(models.ColCloudID, []string{"A"}).OrderByDesc(models.ColCloudID).Limit(2),
		[]string{models.ColCloudID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "D", rows[0].StringOr(models.ColCloudID, ""))
	assert.Equal(t, "C", rows[1].StringOr(models.ColCloudID, ""))

	rows, err = s.Query(ctx, rdb.NewPredicates().In(models.ColCloudID, nil), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGormStore_TransactionRollback(t *testing.T) {
	_, s := rdbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx rdb.Store) error {
		insert(t, tx, "A", "root", "a.txt")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = s.Transaction(ctx, func(tx rdb.Store) error {
		insert(t, tx, "A", "root", "a.txt")
		return nil
	})
	require.NoError(t, err)
	count, err = s.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "a[*]b[?]c[[]d]", rdb.EscapeGlob("a*b?c[d]"))
	assert.Equal(t, "plain", rdb.EscapeGlob("plain"))
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormStore_QueryFault(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := rdb.NewGormStore(gormDB)

	mock.ExpectQuery("SELECT .* FROM `CloudDisk`").WillReturnError(errors.New("disk I/O error"))

	_, err := s.Query(context.Background(), rdb.NewPredicates().EqualTo(models.ColCloudID, "A"), nil)
	assert.Equal(t, reconcile.KindStoreFault, reconcile.KindOf(err))
	assert.True(t, reconcile.ShouldAbort(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGlobToRegexp(t *testing.T) {
	tests := []struct {
		name  string
		glob  string
		want  string
		match []string
		miss  []string
	}{
		{
			name:  "numbered suffix",
			glob:  rdb.EscapeGlob("a(") + "[1-9]" + rdb.EscapeGlob(").pdf"),
			want:  `^a\([1-9]\)\.pdf$`,
			match: []string{"a(1).pdf", "a(9).pdf"},
			miss:  []string{"a(10).pdf", "a(0).pdf", "A(1).pdf", "xa(1).pdf"},
		},
		{
			name:  "escaped metacharacters",
			glob:  rdb.EscapeGlob("[x]*(") + "[1-9]" + rdb.EscapeGlob(")"),
			match: []string{"[x]*(2)"},
			miss:  []string{"x(2)", "[x]yy(2)"},
		},
		{
			name:  "wildcards",
			glob:  "a?c*",
			want:  `^a.c.*$`,
			match: []string{"abc", "axcdef"},
			miss:  []string{"ac", "bbc"},
		},
		{
			name:  "negated class",
			glob:  "[^a]b",
			want:  `^[^a]b$`,
			match: []string{"cb"},
			miss:  []string{"ab"},
		},
		{
			name:  "unterminated class",
			glob:  "a[b",
			want:  `^a\[b$`,
			match: []string{"a[b"},
			miss:  []string{"ab"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rdb.GlobToRegexp(tt.glob)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			re := regexp.MustCompile(got)
			for _, s := range tt.match {
				assert.True(t, re.MatchString(s), s)
			}
			for _, s := range tt.miss {
				assert.False(t, re.MatchString(s), s)
			}
		})
	}
}

func TestGormStore_GlobOnMySQL(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := rdb.NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta("parent_cloud_id = ? AND REGEXP_LIKE(file_name, ?, 'c')")).
		WithArgs("root", `^a\([1-9]\)\.pdf$`).
		WillReturnRows(sqlmock.NewRows([]string{models.ColCloudID}).AddRow("A"))

	p := rdb.NewPredicates().
		EqualTo(models.ColParentCloudID, "root").
		Glob(models.ColFileName, "a([1-9]).pdf")
	rows, err := s.Query(context.Background(), p, []string{models.ColCloudID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].StringOr(models.ColCloudID, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}
