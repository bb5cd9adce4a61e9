package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/pagecache"
)

// Table serves one entity family over the generic record RPCs.
type Table[T pagecache.Entity] struct {
	cl    *api.Client
	table model.Table
}

// NewTable returns a pagecache.Source for table decoding record bodies into T.
func NewTable[T pagecache.Entity](cl *api.Client, table model.Table) *Table[T] {
	return &Table[T]{cl: cl, table: table}
}

func decode[T any](rec model.Record) (T, error) {
	var v T
	if err := json.Unmarshal(rec.Body, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", rec.Kind, rec.ID, err)
	}
	return v, nil
}

// List implements pagecache.Source.
func (t *Table[T]) List(ctx context.Context, q pagecache.Query) ([]T, error) {
	resp, err := t.cl.List(ctx, &api.ListRequest{Table: t.table, Scope: q.Scope, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		return nil, fromStatus(err)
	}
	out := make([]T, 0, len(resp.Records))
	for _, rec := range resp.Records {
		v, err := decode[T](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Insert implements pagecache.Source.
func (t *Table[T]) Insert(ctx context.Context, scope model.Scope, item T) (T, error) {
	var zero T
	body, err := json.Marshal(item)
	if err != nil {
		return zero, err
	}
	resp, err := t.cl.Insert(ctx, &api.InsertRequest{Table: t.table, Scope: scope, Body: body})
	if err != nil {
		return zero, fromStatus(err)
	}
	return decode[T](resp.Record)
}

// Update implements pagecache.Source.
func (t *Table[T]) Update(ctx context.Context, id uuid.UUID, patch model.Patch) (T, error) {
	var zero T
	resp, err := t.cl.Update(ctx, &api.UpdateRequest{Table: t.table, ID: id, Patch: patch})
	if err != nil {
		return zero, fromStatus(err)
	}
	return decode[T](resp.Record)
}

// Delete implements pagecache.Source.
func (t *Table[T]) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := t.cl.Delete(ctx, &api.DeleteRequest{Table: t.table, ID: id})
	return fromStatus(err)
}
