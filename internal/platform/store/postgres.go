package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const pgUniqueViolation = "23505"

// Postgres keeps each collection as a table of JSONB documents keyed by the
// hex storage key. Documents are stored as relaxed extended JSON.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Collection(name string) Driver {
	return &pgCollection{pool: p.pool, table: pgx.Identifier{name}.Sanitize()}
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

// Pool exposes the underlying pool for health reporting.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

type pgCollection struct {
	pool  *pgxpool.Pool
	table string
}

func (c *pgCollection) FindOne(ctx context.Context, q Query) (bson.Raw, error) {
	where, args := pgWhere(q, 1)
	sql := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY created_at, id LIMIT 1`, c.table, where)
	var data []byte
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&data); err != nil {
		return nil, pgErr(err)
	}
	return fromJSON(data)
}

func (c *pgCollection) Find(ctx context.Context, q Query, opts FindOptions) ([]bson.Raw, error) {
	where, args := pgWhere(q, 1)
	sql := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY %s`, c.table, where, pgOrder(opts.Sort))
	if opts.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(opts.Limit)
	}
	if opts.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(opts.Offset)
	}

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	var out []bson.Raw
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := fromJSON(data)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err)
	}
	return out, nil
}

func (c *pgCollection) Count(ctx context.Context, q Query) (int64, error) {
	where, args := pgWhere(q, 1)
	var n int64
	if err := c.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, c.table, where), args...).Scan(&n); err != nil {
		return 0, pgErr(err)
	}
	return n, nil
}

func (c *pgCollection) Insert(ctx context.Context, doc bson.Raw) error {
	key, err := keyOf(doc)
	if err != nil {
		return err
	}
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, c.table),
		key.Hex(), string(data))
	return pgErr(err)
}

func (c *pgCollection) UpdateOne(ctx context.Context, q Query, set bson.M) (bson.Raw, error) {
	patch := make(bson.M, len(set))
	for k, v := range set {
		if k != "_id" {
			patch[k] = v
		}
	}
	data, err := bson.MarshalExtJSON(patch, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}

	where, args := pgWhere(q, 2)
	sql := fmt.Sprintf(`UPDATE %[1]s SET doc = doc || $1::jsonb, updated_at = now()
WHERE id = (SELECT id FROM %[1]s WHERE %[2]s ORDER BY created_at, id LIMIT 1 FOR UPDATE)
RETURNING doc`, c.table, where)

	var out []byte
	if err := c.pool.QueryRow(ctx, sql, append([]interface{}{string(data)}, args...)...).Scan(&out); err != nil {
		return nil, pgErr(err)
	}
	return fromJSON(out)
}

func (c *pgCollection) DeleteOne(ctx context.Context, q Query) (bool, error) {
	where, args := pgWhere(q, 1)
	sql := fmt.Sprintf(`DELETE FROM %[1]s WHERE id = (SELECT id FROM %[1]s WHERE %[2]s ORDER BY created_at, id LIMIT 1)`, c.table, where)
	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, pgErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

// EnsureIndexes creates the collection table when missing, then one
// expression index per Index. Sparse indexes become partial indexes over
// documents carrying the first indexed field.
func (c *pgCollection) EnsureIndexes(ctx context.Context, indexes []Index) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    doc JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, c.table)
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", c.table, err)
	}
	for _, idx := range indexes {
		if _, err := c.pool.Exec(ctx, pgIndexDDL(c.table, idx)); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

func pgIndexDDL(table string, idx Index) string {
	exprs := make([]string, len(idx.Fields))
	for i, f := range idx.Fields {
		exprs[i] = "(" + pgField(f) + ")"
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	ddl := fmt.Sprintf(`CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)`,
		unique, pgx.Identifier{idx.Name}.Sanitize(), table, strings.Join(exprs, ", "))
	if idx.Sparse && len(idx.Fields) > 0 {
		ddl += " WHERE doc ? " + pgLiteral(idx.Fields[0])
	}
	return ddl
}

// pgWhere renders q as a boolean SQL expression with placeholders numbered
// from start. Values are always bound, never interpolated.
func pgWhere(q Query, start int) (string, []interface{}) {
	var (
		args  []interface{}
		parts []string
	)
	clause := func(f Filter) string {
		args = append(args, pgValue(f.Value))
		return fmt.Sprintf("%s = $%d", pgField(f.Field), start+len(args)-1)
	}
	for _, f := range q.All {
		parts = append(parts, clause(f))
	}
	if len(q.Any) > 0 {
		or := make([]string, len(q.Any))
		for i, f := range q.Any {
			or[i] = clause(f)
		}
		parts = append(parts, "("+strings.Join(or, " OR ")+")")
	}
	if len(parts) == 0 {
		return "TRUE", nil
	}
	return strings.Join(parts, " AND "), args
}

func pgOrder(sort []SortField) string {
	if len(sort) == 0 {
		return "created_at, id"
	}
	parts := make([]string, len(sort))
	for i, s := range sort {
		parts[i] = pgField(s.Field)
		if s.Desc {
			parts[i] += " DESC"
		}
	}
	return strings.Join(parts, ", ")
}

func pgField(field string) string {
	if field == "_id" {
		return "id"
	}
	return "doc->>" + pgLiteral(field)
}

func pgLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// pgValue renders v the way ->> renders the matching JSON value.
func pgValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case primitive.ObjectID:
		return x.Hex()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func fromJSON(data []byte) (bson.Raw, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

func pgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pe.ConstraintName)
	}
	return err
}
