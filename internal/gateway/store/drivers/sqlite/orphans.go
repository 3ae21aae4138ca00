package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/domain"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store"
	"github.com/aussiebroadwan/nearbynurse/pkg/idx"
)

const orphanColumns = `id, identity_ref, username, email, reason, attempts, created_at, updated_at`

type orphansRepo struct {
	db  dbtx
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrphan(row rowScanner) (domain.Orphan, error) {
	var (
		o                domain.Orphan
		id               string
		created, updated int64
	)
	if err := row.Scan(&id, &o.IdentityRef, &o.Username, &o.Email, &o.Reason, &o.Attempts, &created, &updated); err != nil {
		return domain.Orphan{}, err
	}
	o.ID = idx.ID(id)
	o.CreatedAt = fromMillis(created)
	o.UpdatedAt = fromMillis(updated)
	return o, nil
}

func (r *orphansRepo) CreateOrphan(ctx context.Context, o domain.Orphan) error {
	now := r.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orphans (`+orphanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID.String(), o.IdentityRef, o.Username, o.Email, o.Reason, o.Attempts,
		toMillis(o.CreatedAt), toMillis(now),
	)
	return mapConstraint(err)
}

func (r *orphansRepo) GetOrphan(ctx context.Context, id string) (domain.Orphan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orphanColumns+` FROM orphans WHERE id = ?`, id)
	o, err := scanOrphan(row)
	if err != nil {
		return domain.Orphan{}, mapNotFound(err)
	}
	return o, nil
}

func (r *orphansRepo) ListOrphans(ctx context.Context) ([]domain.Orphan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orphanColumns+` FROM orphans ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Orphan
	for rows.Next() {
		o, err := scanOrphan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orphansRepo) RecordAttempt(ctx context.Context, id, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orphans SET attempts = attempts + 1, reason = ?, updated_at = ? WHERE id = ?`,
		reason, toMillis(r.now()), id,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *orphansRepo) DeleteOrphan(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orphans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *orphansRepo) CountOrphans(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orphans`).Scan(&n)
	return n, err
}

func requireOneRow(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
