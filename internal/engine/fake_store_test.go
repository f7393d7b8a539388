package engine

import (
	"context"
	"fmt"

	"github.com/dwinston/dbaudit/internal/store"
)

// fakeCursor replays a fixed set of documents.
type fakeCursor struct {
	docs []store.Document
	pos  int
	err  error
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(v interface{}) error {
	m, ok := v.(*store.Document)
	if !ok {
		return fmt.Errorf("unexpected decode target %T", v)
	}
	*m = c.docs[c.pos-1]
	return nil
}

func (c *fakeCursor) Err() error                    { return c.err }
func (c *fakeCursor) Close(ctx context.Context) error { return nil }

// fakeCollection serves documents from memory.
type fakeCollection struct {
	name    string
	docs    []store.Document
	findErr error
}

func (c *fakeCollection) Name() string { return c.name }

func (c *fakeCollection) Find(ctx context.Context, filter store.Filter) (store.Cursor, error) {
	if c.findErr != nil {
		return nil, c.findErr
	}
	return &fakeCursor{docs: c.docs}, nil
}

func (c *fakeCollection) CountDocuments(ctx context.Context, filter store.Filter) (int64, error) {
	return int64(len(c.docs)), nil
}

func (c *fakeCollection) InsertOne(ctx context.Context, doc store.Document) error {
	c.docs = append(c.docs, doc)
	return nil
}

// fakeConn hands out named fake collections.
type fakeConn struct {
	collections map[string]*fakeCollection
}

func (c *fakeConn) Collection(name string) store.Collection {
	if coll, ok := c.collections[name]; ok {
		return coll
	}
	return &fakeCollection{name: name}
}

func (c *fakeConn) Ping(ctx context.Context) error  { return nil }
func (c *fakeConn) Close(ctx context.Context) error { return nil }
