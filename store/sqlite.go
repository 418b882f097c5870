package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type sqliteDatabase struct {
	db *sql.DB
}

func openSQLite(dsn string) (*sqliteDatabase, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn cannot be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite database")
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	return &sqliteDatabase{db: db}, nil
}

func (d *sqliteDatabase) migrate(ctx context.Context) error {
	// Create records table if it doesn't exist
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			path TEXT PRIMARY KEY,
			scope TEXT NOT NULL,
			item_key TEXT NOT NULL,
			namespace TEXT NOT NULL,
			version INTEGER NOT NULL,
			fields TEXT NOT NULL,
			seq INTEGER NOT NULL,
			creation_timestamp INTEGER NOT NULL,
			update_timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "creating records table")
	}
	_, err = d.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS records_scope ON records (scope, namespace)`)
	if err != nil {
		return errors.Wrap(err, "creating records index")
	}
	return nil
}

func (d *sqliteDatabase) insert(ctx context.Context, r *row) error {
	_, err := d.db.ExecContext(ctx, `
INSERT INTO records (
    path,
    scope,
    item_key,
    namespace,
    version,
    fields,
    seq,
    creation_timestamp,
    update_timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Path,
		r.Scope,
		r.Key,
		r.Namespace,
		r.Version,
		r.Fields,
		r.Seq,
		r.CreationTimestamp,
		r.UpdateTimestamp,
	)
	if err != nil {
		return errors.Wrap(err, "inserting into records table")
	}
	return nil
}

func (d *sqliteDatabase) update(ctx context.Context, r *row) error {
	result, err := d.db.ExecContext(ctx, `UPDATE records SET fields = ?, update_timestamp = ? WHERE path = ?`,
		r.Fields, r.UpdateTimestamp, r.Path)
	if err != nil {
		return errors.Wrap(err, "updating records table")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking rows affected")
	}
	if rowsAffected == 0 {
		return errors.Wrap(ErrNotFound, r.Path)
	}
	return nil
}

func (d *sqliteDatabase) load(ctx context.Context) ([]*row, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT path, scope, item_key, namespace, version, fields, seq, creation_timestamp, update_timestamp
		FROM records
		ORDER BY seq
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	defer rows.Close()

	var result []*row
	for rows.Next() {
		r := &row{}
		if err := rows.Scan(&r.Path, &r.Scope, &r.Key, &r.Namespace, &r.Version, &r.Fields,
			&r.Seq, &r.CreationTimestamp, &r.UpdateTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning record row")
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating record rows")
	}
	return result, nil
}

func (d *sqliteDatabase) close() error {
	return d.db.Close()
}
