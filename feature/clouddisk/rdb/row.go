package rdb

import (
	"errors"
	"fmt"

	"clouddisk-sync/core/utils"
)

var (
	// ErrColumnMissing is returned when a row was read without the column.
	ErrColumnMissing = errors.New("column missing")
	// ErrNullValue is returned when the column holds NULL.
	ErrNullValue = errors.New("column is null")
)

// Values maps column names to new values for inserts and updates.
type Values = map[string]any

// Row is one result row keyed by column name.
type Row map[string]any

func (r Row) value(col string) (any, error) {
	v, ok := r[col]
	if !ok {
		return nil, fmt.Errorf("%s: %w", col, ErrColumnMissing)
	}
	if v == nil {
		return nil, fmt.Errorf("%s: %w", col, ErrNullValue)
	}
	return v, nil
}

func (r Row) String(col string) (string, error) {
	v, err := r.value(col)
	if err != nil {
		return "", err
	}
	return utils.ToString(v), nil
}

func (r Row) Int64(col string) (int64, error) {
	v, err := r.value(col)
	if err != nil {
		return 0, err
	}
	return utils.ToInt64(v), nil
}

func (r Row) Int(col string) (int, error) {
	v, err := r.value(col)
	if err != nil {
		return 0, err
	}
	return utils.ToInt(v), nil
}

func (r Row) Bool(col string) (bool, error) {
	v, err := r.value(col)
	if err != nil {
		return false, err
	}
	return utils.ToBool(v), nil
}

// StringOr returns the column as a string, or def when missing or NULL.
func (r Row) StringOr(col, def string) string {
	s, err := r.String(col)
	if err != nil {
		return def
	}
	return s
}

// Int64Or returns the column as an int64, or def when missing or NULL.
func (r Row) Int64Or(col string, def int64) int64 {
	n, err := r.Int64(col)
	if err != nil {
		return def
	}
	return n
}
