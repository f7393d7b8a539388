// Package store abstracts the backing document store. The rest of the tool
// talks to the Conn/Collection interfaces; the MongoDB adapter in mongo.go
// is the only place that touches the driver.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Document is one record as stored.
type Document = bson.M

// Filter is a store-native query filter.
type Filter = bson.M

// Params holds connection parameters for one store.
type Params struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// URI renders the params as a MongoDB connection string.
func (p Params) URI() string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 27017
	}
	if p.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d/%s", p.User, p.Password, host, port, p.Database)
	}
	return fmt.Sprintf("mongodb://%s:%d/%s", host, port, p.Database)
}

// Addr is the host:port form, for log and report metadata.
func (p Params) Addr() string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 27017
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Cursor iterates documents from a query.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// Collection is a handle to one named collection.
type Collection interface {
	Name() string
	Find(ctx context.Context, filter Filter) (Cursor, error)
	CountDocuments(ctx context.Context, filter Filter) (int64, error)
	InsertOne(ctx context.Context, doc Document) error
}

// Conn is an open connection to one database.
type Conn interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
