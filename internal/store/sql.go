package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// SQLPool is a Pool backed by database/sql. It serves the lib/pq
// postgres driver and the pure-Go sqlite driver.
type SQLPool struct {
	db     *sql.DB
	config Config
	log    *zap.Logger
}

var _ Pool = (*SQLPool)(nil)

func openSQLPool(config Config, log *zap.Logger) (*SQLPool, error) {
	db, err := sql.Open(config.Driver, config.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		db.SetMaxIdleConns(config.MinConns)
	}

	return NewSQLPool(db, config, log), nil
}

// NewSQLPool wraps an open database handle.
func NewSQLPool(db *sql.DB, config Config, log *zap.Logger) *SQLPool {
	return &SQLPool{
		db:     db,
		config: config,
		log:    log,
	}
}

func (p *SQLPool) Acquire(ctx context.Context) (Conn, error) {
	acquireCtx, cancel := acquireContext(ctx, p.config.AcquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		return nil, acquireError(ctx, err)
	}

	return &sqlConn{conn: conn}, nil
}

func (p *SQLPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *SQLPool) Close() {
	if err := p.db.Close(); err != nil {
		p.log.Error("error closing database", zap.Error(err))
	}
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (c *sqlConn) Query(ctx context.Context, query string, limit int) ([]Row, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	fields := make([]Field, len(columns))
	declared := make([]string, len(columns))
	for i, col := range columns {
		fields[i].Name = col.Name()
		declared[i] = col.DatabaseTypeName()
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	result := make([]Row, 0)
	for rows.Next() {
		if limit > 0 && len(result) >= limit {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, limit)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		for i, v := range values {
			raw, typeName := textOf(v)
			fields[i].Raw = raw
			fields[i].Null = v == nil

			// computed columns (e.g. sqlite count(*)) carry no declared
			// type, the driver's value type names them instead
			fields[i].Type = declared[i]
			if fields[i].Type == "" {
				fields[i].Type = typeName
			}
		}

		result = append(result, DecodeRow(fields))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *sqlConn) Release() {
	c.conn.Close()
}

// textOf renders a driver value the way the text wire format spells it
// and names the store type its Go type stands for.
func textOf(v any) ([]byte, string) {
	switch v := v.(type) {
	case nil:
		return nil, ""
	case int64:
		return strconv.AppendInt(nil, v, 10), "INT8"
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64), "FLOAT8"
	case bool:
		return strconv.AppendBool(nil, v), "BOOL"
	case string:
		return []byte(v), "TEXT"
	case []byte:
		return v, ""
	case time.Time:
		return []byte(v.Format(time.RFC3339Nano)), ""
	default:
		return []byte(fmt.Sprint(v)), ""
	}
}
