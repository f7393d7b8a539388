package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a connection to the MongoDB database described by p and
// verifies it with a ping.
func Connect(ctx context.Context, p Params) (Conn, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(p.URI()))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", p.Addr(), err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping %s: %w", p.Addr(), err)
	}
	return &mongoConn{client: client, db: client.Database(p.Database)}, nil
}

type mongoConn struct {
	client *mongo.Client
	db     *mongo.Database
}

func (c *mongoConn) Collection(name string) Collection {
	return &mongoCollection{coll: c.db.Collection(name)}
}

func (c *mongoConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

func (c *mongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (m *mongoCollection) Name() string {
	return m.coll.Name()
}

func (m *mongoCollection) Find(ctx context.Context, filter Filter) (Cursor, error) {
	if filter == nil {
		filter = Filter{}
	}
	return m.coll.Find(ctx, filter)
}

func (m *mongoCollection) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	if filter == nil {
		filter = Filter{}
	}
	return m.coll.CountDocuments(ctx, filter)
}

func (m *mongoCollection) InsertOne(ctx context.Context, doc Document) error {
	_, err := m.coll.InsertOne(ctx, doc)
	return err
}
