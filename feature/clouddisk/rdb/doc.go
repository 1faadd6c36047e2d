// Package rdb is the relational store of the CloudDisk table.
//
// The engine reads and writes rows as column maps so the same code paths
// serve partial projections (pull matching, upload building, ack handling)
// without a struct per projection. Predicates build the WHERE, ORDER BY and
// LIMIT clauses; Row converts driver values back to Go types and tells a
// missing column from a NULL one.
//
// All failures are returned as reconcile StoreFault errors so the pull
// loop can abort a batch on them.
//
// # Usage
//
//	store := rdb.NewGormStore(db)
//	rows, err := store.Query(ctx,
//	    rdb.NewPredicates().In(models.ColCloudID, ids),
//	    models.PullQueryColumns)
//
//	err = store.Transaction(ctx, func(tx rdb.Store) error {
//	    _, err := tx.Update(ctx, values, rdb.NewPredicates().EqualTo(models.ColCloudID, id))
//	    return err
//	})
package rdb
