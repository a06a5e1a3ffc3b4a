package store

import (
	"context"
	"database/sql"
)

type sqliteBatch struct {
	s   *SQLiteStore
	ops []batchOp
}

type batchOp struct {
	change Change
	apply  func(ctx context.Context, tx *sql.Tx) error
}

func (s *SQLiteStore) NewBatch() Batch {
	return &sqliteBatch{s: s}
}

func (b *sqliteBatch) UpdateUser(id string, updates ...UserUpdate) {
	b.ops = append(b.ops, batchOp{
		change: Change{Collection: CollectionUsers, ID: id},
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := updateUserTx(ctx, tx, id, updates)
			return err
		},
	})
}

func (b *sqliteBatch) DeleteUser(id string) {
	b.delete(CollectionUsers, "users", id)
}

func (b *sqliteBatch) DeleteRanking(id string) {
	b.delete(CollectionRankings, "rankings", id)
}

func (b *sqliteBatch) DeleteNotification(id string) {
	b.delete(CollectionNotifications, "notifications", id)
}

func (b *sqliteBatch) delete(collection Collection, table, id string) {
	b.ops = append(b.ops, batchOp{
		change: Change{Collection: collection, ID: id, Deleted: true},
		apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
			return err
		},
	})
}

func (b *sqliteBatch) Len() int {
	return len(b.ops)
}

// Commit runs every queued write in one transaction.
func (b *sqliteBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}

	err := b.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, op := range b.ops {
			if err := op.apply(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	changes := make([]Change, 0, len(b.ops))
	for _, op := range b.ops {
		changes = append(changes, op.change)
	}
	b.s.hub.publish(changes...)
	b.ops = nil
	return nil
}
