package types

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Querier is implemented by both the database and its transactions, so model
// functions can run either standalone or as part of a larger unit of work.
type Querier interface {
	NewContext() context.Context
	TimeNow() time.Time
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Filter narrows down the records returned by a query with conditions joined
// by AND. A nil *Filter matches all records.
type Filter struct {
	conds []string
	args  []any
}

// NewFilter creates a query filter with a single condition, e.g.
// NewFilter("r.direction = ?", "inbound").
func NewFilter(cond string, args ...any) *Filter {
	return &Filter{conds: []string{cond}, args: args}
}

// And returns a new filter that also requires cond to hold. It can be called
// on a nil *Filter.
func (f *Filter) And(cond string, args ...any) *Filter {
	if f == nil {
		return NewFilter(cond, args...)
	}
	nf := &Filter{
		conds: make([]string, 0, len(f.conds)+1),
		args:  make([]any, 0, len(f.args)+len(args)),
	}
	nf.conds = append(append(nf.conds, f.conds...), cond)
	nf.args = append(append(nf.args, f.args...), args...)
	return nf
}

// Where returns the SQL expression to use in a WHERE clause, and its arguments.
func (f *Filter) Where() (string, []any) {
	if f == nil || len(f.conds) == 0 {
		return "1=1", nil
	}
	return "(" + strings.Join(f.conds, ") AND (") + ")", f.args
}
