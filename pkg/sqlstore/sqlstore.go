// Package sqlstore is a cell reader backed by SQLite.
//
// Facts are stored one row per measure value, with one column per
// hierarchy holding the leaf member's unique name. A closure table maps
// every member to its descendants, so a predicate on any member becomes an
// IN-list over the closure. Aggregators with a SQL counterpart are pushed
// down; the others are combined in Go.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sandrolain/gomdx/pkg/aggregate"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Store reads cells from a SQLite database.
type Store struct {
	db     *sql.DB
	cube   *olap.Cube
	opts   Options
	logger *slog.Logger
}

var _ olap.BatchCellReader = (*Store)(nil)

// Options configures a store.
type Options struct {
	// MaxConstraints bounds the tuples of one aggregation request. Zero
	// means unbounded.
	MaxConstraints int
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures a store.
type Option func(*Options)

// WithMaxConstraints sets the predicate limit.
func WithMaxConstraints(n int) Option {
	return func(opts *Options) {
		opts.MaxConstraints = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Open opens or creates the database at dsn for cube. Use ":memory:" for a
// private in-memory database.
func Open(ctx context.Context, dsn string, cube *olap.Cube, opts ...Option) (*Store, error) {
	options := Options{MaxConstraints: 1000}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cell store: %w", err)
	}
	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, cube: cube, opts: options, logger: options.Logger}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SupportsUnlimitedValueList implements olap.Dialect. SQLite bounds the
// number of host parameters of a statement.
func (s *Store) SupportsUnlimitedValueList() bool { return false }

func column(h *olap.Hierarchy) string { return "h" + strconv.Itoa(h.Ordinal) }

func (s *Store) dimensionHierarchies() []*olap.Hierarchy {
	var out []*olap.Hierarchy
	for _, h := range s.cube.Hierarchies() {
		if !h.Dimension.Measures {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) initSchema(ctx context.Context) error {
	var cols []string
	for _, h := range s.dimensionHierarchies() {
		cols = append(cols, column(h)+" TEXT")
	}
	schema := `
	CREATE TABLE IF NOT EXISTS closure (
		ancestor TEXT NOT NULL,
		descendant TEXT NOT NULL,
		PRIMARY KEY (ancestor, descendant)
	);

	CREATE TABLE IF NOT EXISTS facts (
		measure TEXT NOT NULL,
		value REAL NOT NULL` + prefixed(",\n\t\t", cols) + `
	);

	CREATE INDEX IF NOT EXISTS idx_facts_measure ON facts(measure);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func prefixed(sep string, items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(sep)
		b.WriteString(it)
	}
	return b.String()
}

// Import copies the facts of src, which must be built on the same cube,
// and the ancestry of every member they reference.
func (s *Store) Import(ctx context.Context, src *memcube.Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	hs := s.dimensionHierarchies()
	placeholders := strings.Repeat(", ?", len(hs))
	var cols []string
	for _, h := range hs {
		cols = append(cols, column(h))
	}
	insertFact, err := tx.PrepareContext(ctx,
		`INSERT INTO facts (measure, value`+prefixed(", ", cols)+`) VALUES (?, ?`+placeholders+`)`)
	if err != nil {
		return fmt.Errorf("failed to prepare fact insert: %w", err)
	}
	defer insertFact.Close()
	insertClosure, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO closure (ancestor, descendant) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare closure insert: %w", err)
	}
	defer insertClosure.Close()

	seen := map[*olap.Member]bool{}
	for _, f := range src.Facts() {
		members := make([]any, len(hs))
		for i, h := range hs {
			m := f.Members[h.Ordinal]
			if m == nil {
				continue
			}
			members[i] = m.UniqueName
			if seen[m] {
				continue
			}
			seen[m] = true
			for a := m; a != nil; a = a.Parent {
				if _, err := insertClosure.ExecContext(ctx, a.UniqueName, m.UniqueName); err != nil {
					return fmt.Errorf("failed to insert closure of %s: %w", m, err)
				}
			}
		}
		for measure, v := range f.Values {
			args := append([]any{measure.UniqueName, v}, members...)
			if _, err := insertFact.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert fact: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("imported facts", "cube", s.cube.Name, "facts", len(src.Facts()), "members", len(seen))
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Cell aggregates the facts under coordinate.
func (s *Store) Cell(ctx context.Context, coordinate []*olap.Member) (any, error) {
	metrics.StoreQueriesTotal.WithLabelValues("cell").Inc()
	var measure *olap.Member
	for _, m := range coordinate {
		if m != nil && m.IsMeasure() {
			measure = m
		}
	}
	return s.query(ctx, s.db, measure, coordinate, nil)
}

// Aggregate aggregates the facts under the union of the request's tuples.
func (s *Store) Aggregate(ctx context.Context, req olap.AggregationRequest) (any, error) {
	metrics.StoreQueriesTotal.WithLabelValues("aggregate").Inc()
	return s.query(ctx, s.db, req.Measure, req.Coordinate, req.Tuples)
}

// AggregateBatch resolves all requests within one transaction, so they
// see the same facts.
func (s *Store) AggregateBatch(ctx context.Context, reqs []olap.AggregationRequest) ([]any, error) {
	metrics.StoreQueriesTotal.WithLabelValues("batch").Inc()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	out := make([]any, len(reqs))
	for i, req := range reqs {
		if out[i], err = s.query(ctx, tx, req.Measure, req.Coordinate, req.Tuples); err != nil {
			return nil, err
		}
	}
	return out, tx.Commit()
}

func (s *Store) query(ctx context.Context, q querier, measure *olap.Member, coord []*olap.Member,
	tuples *olap.TupleList) (any, error) {
	if measure == nil {
		return nil, nil
	}
	where := []string{"measure = ?"}
	args := []any{measure.UniqueName}

	overridden := map[*olap.Hierarchy]bool{}
	if tuples != nil {
		if tuples.Len() == 0 {
			return nil, nil
		}
		if limit := s.opts.MaxConstraints; limit > 0 && tuples.Len() > limit {
			return nil, types.Errorf(types.ErrAggregationTooLarge,
				"aggregation is not supported over a list with more than %d predicates (see property %s)",
				limit, aggregate.MaxConstraintsKey)
		}
		for _, t := range tuples.Tuples() {
			for _, m := range t {
				overridden[m.Hierarchy()] = true
			}
		}
		pred, targs := tuplePredicate(tuples)
		where = append(where, pred)
		args = append(args, targs...)
	}
	for _, m := range coord {
		if m == nil || m.IsMeasure() || m.IsAll() || overridden[m.Hierarchy()] || !s.cube.Joins(m.Dimension()) {
			continue
		}
		where = append(where, memberPredicate(column(m.Hierarchy()), 1))
		args = append(args, m.UniqueName)
	}

	agg := aggregatorOf(measure)
	filter := " FROM facts WHERE " + strings.Join(where, " AND ")
	if expr, ok := pushdown[agg.Name()]; ok {
		var v sql.NullFloat64
		var n int
		if err := q.QueryRowContext(ctx, "SELECT "+expr+", COUNT(*)"+filter, args...).Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", measure, err)
		}
		if n == 0 || !v.Valid {
			return nil, nil
		}
		return v.Float64, nil
	}

	rows, err := q.QueryContext(ctx, "SELECT value"+filter, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", measure, err)
	}
	defer rows.Close()
	var values []any
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return agg.Combine(values)
}

// pushdown maps aggregators to SQL aggregate expressions.
var pushdown = map[string]string{
	"sum":            "SUM(value)",
	"count":          "COUNT(value)",
	"min":            "MIN(value)",
	"max":            "MAX(value)",
	"avg":            "AVG(value)",
	"distinct-count": "COUNT(DISTINCT value)",
}

func aggregatorOf(measure *olap.Member) *aggregate.Aggregator {
	if v, ok := measure.Property(olap.PropertyAggregationType); ok {
		if a, ok := v.(*aggregate.Aggregator); ok && a != nil {
			return a
		}
	}
	return aggregate.Sum
}

// memberPredicate restricts col to the descendants of n members. A fact
// without a member on the hierarchy matches everything.
func memberPredicate(col string, n int) string {
	in := "?" + strings.Repeat(", ?", n-1)
	return fmt.Sprintf("(%[1]s IS NULL OR %[1]s IN (SELECT descendant FROM closure WHERE ancestor IN (%[2]s)))", col, in)
}

// tuplePredicate matches facts under any tuple of list. One-column lists
// become a single IN-list.
func tuplePredicate(list *olap.TupleList) (string, []any) {
	var args []any
	if list.Arity() == 1 {
		members := list.Members()
		for _, m := range members {
			args = append(args, m.UniqueName)
		}
		return memberPredicate(column(members[0].Hierarchy()), len(members)), args
	}
	ors := make([]string, 0, list.Len())
	for _, t := range list.Tuples() {
		ands := make([]string, len(t))
		for i, m := range t {
			ands[i] = memberPredicate(column(m.Hierarchy()), 1)
			args = append(args, m.UniqueName)
		}
		ors = append(ors, "("+strings.Join(ands, " AND ")+")")
	}
	return "(" + strings.Join(ors, " OR ") + ")", args
}
