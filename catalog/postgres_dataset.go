package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/grewanderer/datapact/frame"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type postgresOptions struct {
	Table   string   `yaml:"table"`
	Schema  string   `yaml:"schema"`
	Columns []string `yaml:"columns"`
}

// postgresDataset maps a table to a frame. Save replaces the table contents
// in one transaction.
type postgresDataset struct {
	name  string
	db    *sql.DB
	table string
	cols  []string
}

func newPostgresDataset(name string, params map[string]any, deps Deps) (*postgresDataset, error) {
	var o postgresOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}
	if deps.DB == nil {
		return nil, errors.New("postgres datasets require a database handle")
	}

	table := strings.TrimSpace(o.Table)
	if table == "" {
		return nil, errors.New("table is required")
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("table %q is not a valid identifier", table)
	}
	qualified := table
	if schema := strings.TrimSpace(o.Schema); schema != "" {
		if !identPattern.MatchString(schema) {
			return nil, fmt.Errorf("schema %q is not a valid identifier", schema)
		}
		qualified = schema + "." + table
	}
	for _, col := range o.Columns {
		if !identPattern.MatchString(col) {
			return nil, fmt.Errorf("column %q is not a valid identifier", col)
		}
	}

	return &postgresDataset{name: name, db: deps.DB, table: qualified, cols: o.Columns}, nil
}

func (d *postgresDataset) Load(ctx context.Context) (any, error) {
	colExpr := "*"
	if len(d.cols) > 0 {
		colExpr = strings.Join(d.cols, ", ")
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", colExpr, d.table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	f, err := frame.New(columns...)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := f.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", d.table, err)
	}
	return f, nil
}

func (d *postgresDataset) Save(ctx context.Context, value any) error {
	f, err := asFrame(value)
	if err != nil {
		return err
	}

	cols := f.Columns()
	for _, col := range cols {
		if !identPattern.MatchString(col) {
			return fmt.Errorf("column %q is not a valid identifier", col)
		}
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+d.table); err != nil {
		return fmt.Errorf("clear %s: %w", d.table, err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range f.Rows() {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", d.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (d *postgresDataset) Describe() string {
	return fmt.Sprintf("postgres table %s", d.table)
}
