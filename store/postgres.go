package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type postgresDatabase struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string) (*postgresDatabase, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}
	return &postgresDatabase{pool: pool}, nil
}

func (d *postgresDatabase) migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			path TEXT PRIMARY KEY,
			scope TEXT NOT NULL,
			item_key TEXT NOT NULL,
			namespace TEXT NOT NULL,
			version INTEGER NOT NULL,
			fields JSONB NOT NULL,
			seq BIGINT NOT NULL,
			creation_timestamp BIGINT NOT NULL,
			update_timestamp BIGINT NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "creating records table")
	}
	_, err = d.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS records_scope ON records (scope, namespace)`)
	if err != nil {
		return errors.Wrap(err, "creating records index")
	}
	return nil
}

func (d *postgresDatabase) insert(ctx context.Context, r *row) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO records (path, scope, item_key, namespace, version, fields, seq, creation_timestamp, update_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)`,
		r.Path, r.Scope, r.Key, r.Namespace, r.Version, r.Fields, r.Seq, r.CreationTimestamp, r.UpdateTimestamp,
	)
	if err != nil {
		return errors.Wrap(err, "inserting into records table")
	}
	return nil
}

func (d *postgresDatabase) update(ctx context.Context, r *row) error {
	tag, err := d.pool.Exec(ctx, `UPDATE records SET fields = $1::jsonb, update_timestamp = $2 WHERE path = $3`,
		r.Fields, r.UpdateTimestamp, r.Path)
	if err != nil {
		return errors.Wrap(err, "updating records table")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(ErrNotFound, r.Path)
	}
	return nil
}

func (d *postgresDatabase) load(ctx context.Context) ([]*row, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT path, scope, item_key, namespace, version, fields::text, seq, creation_timestamp, update_timestamp
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

func (d *postgresDatabase) close() error {
	d.pool.Close()
	return nil
}
