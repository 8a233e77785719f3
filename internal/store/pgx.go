package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type pgxPool struct {
	pool   *pgxpool.Pool
	config Config
	log    *zap.Logger
}

var _ Pool = (*pgxPool)(nil)

func newPgxPool(ctx context.Context, config Config, log *zap.Logger) (*pgxPool, error) {
	cfg, err := pgxConfig(config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating pool: %w", err)
	}

	log.Debug("created pool",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &pgxPool{
		pool:   pool,
		config: config,
		log:    log,
	}, nil
}

func pgxConfig(config Config) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing database url: %w", err)
	}

	if config.MaxConns > 0 {
		cfg.MaxConns = int32(config.MaxConns)
	}
	if config.MinConns > 0 {
		cfg.MinConns = int32(config.MinConns)
	}

	// the simple protocol returns every column in text format, which is
	// what the row decoder reads
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return cfg, nil
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	acquireCtx, cancel := acquireContext(ctx, p.config.AcquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, acquireError(ctx, err)
	}

	return &pgxConn{conn: conn}, nil
}

func (p *pgxPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *pgxPool) Close() {
	p.log.Debug("closing pool")
	p.pool.Close()
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (c *pgxConn) Query(ctx context.Context, sql string, limit int) ([]Row, error) {
	rows, err := c.conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	typeMap := c.conn.Conn().TypeMap()

	fields := make([]Field, len(descriptions))
	for i, d := range descriptions {
		fields[i].Name = d.Name
		fields[i].Type = pgxTypeName(typeMap, d.DataTypeOID)
	}

	result := make([]Row, 0)
	for rows.Next() {
		if limit > 0 && len(result) >= limit {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, limit)
		}

		result = append(result, decodeRaw(fields, rows.RawValues()))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *pgxConn) Release() {
	c.conn.Release()
}

// pgxTypeName names the registered type of oid, or returns the empty
// string for types pgx does not know.
func pgxTypeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return ""
}

// decodeRaw decodes one row of text format values. Raw values are only
// valid until the next call to Next, but decoding copies them.
func decodeRaw(fields []Field, raw [][]byte) Row {
	for i := range fields {
		var value []byte
		if i < len(raw) {
			value = raw[i]
		}
		fields[i].Raw = value
		fields[i].Null = value == nil
	}
	return DecodeRow(fields)
}
