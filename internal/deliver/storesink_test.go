package deliver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/store"
)

type insertRecorder struct {
	name      string
	docs      []store.Document
	insertErr error
}

func (c *insertRecorder) Name() string { return c.name }

func (c *insertRecorder) Find(ctx context.Context, f store.Filter) (store.Cursor, error) {
	return nil, errors.New("not implemented")
}

func (c *insertRecorder) CountDocuments(ctx context.Context, f store.Filter) (int64, error) {
	return 0, errors.New("not implemented")
}

func (c *insertRecorder) InsertOne(ctx context.Context, doc store.Document) error {
	if c.insertErr != nil {
		return c.insertErr
	}
	c.docs = append(c.docs, doc)
	return nil
}

type fakeConn struct {
	coll   *insertRecorder
	closed bool
}

func (c *fakeConn) Collection(name string) store.Collection { return c.coll }
func (c *fakeConn) Ping(ctx context.Context) error          { return nil }
func (c *fakeConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func TestStoreSink_PersistsReportWithRunInfo(t *testing.T) {
	coll := &insertRecorder{name: "diff_reports"}
	conn := &fakeConn{coll: coll}

	info := RunInfo{
		Start:     time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 8, 23, 10, 0, 2, 0, time.UTC),
		OldSource: "localhost:27017/vasp/tasks",
		NewSource: "localhost:27017/vasp2/tasks",
	}
	sink := NewStoreSink(logger.NewNop(), store.Params{Database: "admin"}, "diff_reports", info)
	sink.connect = func(ctx context.Context, p store.Params) (store.Conn, error) {
		return conn, nil
	}

	err := sink.Deliver(context.Background(), textDelivery(nonEmptyReport(t)))
	require.NoError(t, err)
	require.Len(t, coll.docs, 1)
	assert.Equal(t, info, coll.docs[0]["run"])
	assert.NotNil(t, coll.docs[0]["report"])
	assert.True(t, conn.closed)
}

func TestStoreSink_ConnectFailure(t *testing.T) {
	sink := NewStoreSink(logger.NewNop(), store.Params{Host: "db9", Port: 27017}, "diff_reports", RunInfo{})
	sink.connect = func(ctx context.Context, p store.Params) (store.Conn, error) {
		return nil, errors.New("no route to host")
	}

	err := sink.Deliver(context.Background(), textDelivery(nonEmptyReport(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db9:27017")
}

func TestStoreSink_InsertFailure(t *testing.T) {
	conn := &fakeConn{coll: &insertRecorder{name: "diff_reports", insertErr: errors.New("unauthorized")}}
	sink := NewStoreSink(logger.NewNop(), store.Params{}, "diff_reports", RunInfo{})
	sink.connect = func(ctx context.Context, p store.Params) (store.Conn, error) {
		return conn, nil
	}

	err := sink.Deliver(context.Background(), textDelivery(nonEmptyReport(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diff_reports")
	assert.True(t, conn.closed, "connection is closed even when the insert fails")
}
