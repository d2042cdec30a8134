package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/canvasflow/canvasflow/internal/types"
)

// Snapshot is a persisted canvas document.
type Snapshot struct {
	ID        types.ID  `json:"id"`
	Name      string    `json:"name"`
	Document  []byte    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotDAO provides database operations for canvas snapshots.
type SnapshotDAO interface {
	// Save stores a snapshot under the given name, replacing any previous
	// snapshot with the same name.
	Save(ctx context.Context, name string, document []byte) (*Snapshot, error)

	// GetByName retrieves a snapshot by name.
	GetByName(ctx context.Context, name string) (*Snapshot, error)

	// List lists all snapshots, newest first, without their documents.
	List(ctx context.Context) ([]*Snapshot, error)

	// Delete deletes a snapshot by name.
	Delete(ctx context.Context, name string) error
}

// snapshotDAO implements SnapshotDAO.
type snapshotDAO struct {
	db *DB
}

// NewSnapshotDAO creates a new snapshot DAO.
func NewSnapshotDAO(db *DB) SnapshotDAO {
	return &snapshotDAO{db: db}
}

func (d *snapshotDAO) Save(ctx context.Context, name string, document []byte) (*Snapshot, error) {
	if name == "" {
		return nil, types.NewError(types.DB_QUERY_FAILED, "snapshot name must not be empty")
	}

	now := time.Now()
	snapshot := &Snapshot{
		ID:        types.NewID(),
		Name:      name,
		Document:  document,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const query = `
INSERT INTO snapshots (id, name, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	document = excluded.document,
	updated_at = excluded.updated_at
`
	if _, err := d.db.conn.ExecContext(ctx, query,
		snapshot.ID.String(), name, string(document), now, now); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to save snapshot", err)
	}
	return snapshot, nil
}

func (d *snapshotDAO) GetByName(ctx context.Context, name string) (*Snapshot, error) {
	const query = `
SELECT id, name, document, created_at, updated_at
FROM snapshots WHERE name = ?
`
	var (
		snapshot Snapshot
		id       string
		document string
	)
	err := d.db.conn.QueryRowContext(ctx, query, name).Scan(
		&id, &snapshot.Name, &document, &snapshot.CreatedAt, &snapshot.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewErrorf(types.SNAPSHOT_NOT_FOUND, "snapshot %q does not exist", name)
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to load snapshot", err)
	}

	snapshot.ID = types.ID(id)
	snapshot.Document = []byte(document)
	return &snapshot, nil
}

func (d *snapshotDAO) List(ctx context.Context) ([]*Snapshot, error) {
	const query = `
SELECT id, name, created_at, updated_at
FROM snapshots ORDER BY updated_at DESC
`
	rows, err := d.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list snapshots", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		var (
			snapshot Snapshot
			id       string
		)
		if err := rows.Scan(&id, &snapshot.Name, &snapshot.CreatedAt, &snapshot.UpdatedAt); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan snapshot row", err)
		}
		snapshot.ID = types.ID(id)
		snapshots = append(snapshots, &snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to iterate snapshot rows", err)
	}
	return snapshots, nil
}

func (d *snapshotDAO) Delete(ctx context.Context, name string) error {
	res, err := d.db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to delete snapshot", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to read delete result", err)
	}
	if affected == 0 {
		return types.NewErrorf(types.SNAPSHOT_NOT_FOUND, "snapshot %q does not exist", name)
	}
	return nil
}
