package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// ErrTableNotFound is returned when a configured source table does not exist.
var ErrTableNotFound = errors.New("source table does not exist")

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens and pings a connection pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// TableNames maps each table kind to a (optionally schema-qualified)
// database table.
type TableNames struct {
	Event      string
	Occurrence string
	Emof       string
}

// Querier is the subset of pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads a dataset from three database tables.
type PostgresSource struct {
	db     Querier
	names  TableNames
	logger *slog.Logger
}

// NewPostgresSource creates a source over db.
func NewPostgresSource(db Querier, names TableNames) *PostgresSource {
	return &PostgresSource{db: db, names: names, logger: slog.Default()}
}

// Load reads all three tables. Each table is read in full.
func (p *PostgresSource) Load(ctx context.Context) (core.Dataset, error) {
	var ds core.Dataset
	var err error

	if ds.Event, err = p.LoadTable(ctx, core.KindEvent, p.names.Event); err != nil {
		return core.Dataset{}, err
	}
	if ds.Occurrence, err = p.LoadTable(ctx, core.KindOccurrence, p.names.Occurrence); err != nil {
		return core.Dataset{}, err
	}
	if ds.Emof, err = p.LoadTable(ctx, core.KindEmof, p.names.Emof); err != nil {
		return core.Dataset{}, err
	}
	return ds, nil
}

// LoadTable reads every row of table. Column names come from the result
// description so they keep their database spelling.
func (p *PostgresSource) LoadTable(ctx context.Context, kind core.TableKind, table string) (*core.Table, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: no database table configured for %s", core.ErrNilTable, kind)
	}

	query := "SELECT * FROM " + quoteTable(table)
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, mapQueryErr(table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	t := core.NewTable(string(kind), columns)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := make(core.Record, len(columns))
		for i, col := range columns {
			rec[col] = cellValue(values[i])
		}
		t.Records = append(t.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapQueryErr(table, err)
	}

	r, c := t.Shape()
	p.logger.Info("table loaded", "table", kind, "source", table, "rows", r, "columns", c)
	return t, nil
}

func mapQueryErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return fmt.Errorf("query %s: %w", table, err)
}

// quoteTable quotes a possibly schema-qualified name.
func quoteTable(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// cellValue normalizes driver values to what the validators understand:
// nil, strings, and float64/int64 numbers.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, float64, int64:
		return x
	case float32:
		return float64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case pgtype.Numeric:
		f := core.ToFloat8(x)
		if !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
