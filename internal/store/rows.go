// Package store reaches the backend's row and object services. Calls act as
// the user whose access token rides on the context (requester.ContextWithToken).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/brizzai/tigoplanes/internal/requester"
)

// ErrNotFound is returned when a filter matched no row.
var ErrNotFound = errors.New("row not found")

const restPrefix = "/rest/v1/"

// Query is a row filter in the rows service's query-string dialect.
type Query struct {
	values url.Values
}

// Select starts a query returning columns ("*" when empty).
func Select(columns string) *Query {
	if columns == "" {
		columns = "*"
	}
	return &Query{values: url.Values{"select": {columns}}}
}

// Filter starts a query without a column list, for updates.
func Filter() *Query {
	return &Query{values: url.Values{}}
}

// Eq keeps rows whose column equals value.
func (q *Query) Eq(column, value string) *Query {
	q.values.Add(column, "eq."+value)
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.values.Add("order", column+"."+dir)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.values.Set("limit", strconv.Itoa(n))
	return q
}

// Values returns the encoded form of q.
func (q *Query) Values() url.Values {
	if q == nil {
		return nil
	}
	return q.values
}

// Rows is a thin client for the table endpoints.
type Rows struct {
	doer requester.Doer
}

// NewRows creates a Rows client
func NewRows(doer requester.Doer) *Rows {
	return &Rows{doer: doer}
}

// List decodes every row matching q into out (a pointer to a slice).
func (r *Rows) List(ctx context.Context, table string, q *Query, out any) error {
	return requester.DoJSON(ctx, r.doer, &requester.Request{
		Method: http.MethodGet,
		Path:   restPrefix + table,
		Query:  q.Values(),
	}, out)
}

// One decodes the first row matching q into out, or returns ErrNotFound.
func (r *Rows) One(ctx context.Context, table string, q *Query, out any) error {
	var rows []json.RawMessage
	if err := r.List(ctx, table, q.Limit(1), &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("failed to decode %s row: %w", table, err)
	}
	return nil
}

// Insert creates row and decodes the stored representation into out.
func (r *Rows) Insert(ctx context.Context, table string, row any, out any) error {
	var rows []json.RawMessage
	err := requester.DoJSON(ctx, r.doer, &requester.Request{
		Method:  http.MethodPost,
		Path:    restPrefix + table,
		Body:    row,
		Headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if out == nil || len(rows) == 0 {
		return nil
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("failed to decode %s row: %w", table, err)
	}
	return nil
}

// Update applies patch to the rows matching q and reports how many changed.
func (r *Rows) Update(ctx context.Context, table string, q *Query, patch any) (int, error) {
	var rows []json.RawMessage
	err := requester.DoJSON(ctx, r.doer, &requester.Request{
		Method:  http.MethodPatch,
		Path:    restPrefix + table,
		Query:   q.Values(),
		Body:    patch,
		Headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
