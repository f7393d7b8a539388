package deliver

import (
	"context"
	"fmt"
	"time"

	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/store"
)

// RunInfo is the provenance block persisted alongside a diff report, so a
// stored report can be traced back to the invocation that produced it.
type RunInfo struct {
	Start          time.Time `bson:"start"`
	End            time.Time `bson:"end"`
	ElapsedSeconds float64   `bson:"elapsed_seconds"`
	Filter         string    `bson:"filter,omitempty"`
	OldSource      string    `bson:"old_source"`
	NewSource      string    `bson:"new_source"`
	Args           []string  `bson:"args,omitempty"`
	User           string    `bson:"user,omitempty"`
	Host           string    `bson:"host,omitempty"`
}

// StoreSink persists a diff report into an administrative collection. The
// connection is opened lazily on first delivery, so a run that suppresses
// its report never touches the report database.
type StoreSink struct {
	params     store.Params
	collection string
	info       RunInfo
	log        logger.Logger

	connect func(ctx context.Context, p store.Params) (store.Conn, error)
}

// NewStoreSink creates a sink that inserts into params.Database/collection.
func NewStoreSink(log logger.Logger, params store.Params, collection string, info RunInfo) *StoreSink {
	return &StoreSink{
		params:     params,
		collection: collection,
		info:       info,
		log:        log,
		connect:    store.Connect,
	}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, d Delivery) error {
	conn, err := s.connect(ctx, s.params)
	if err != nil {
		return fmt.Errorf("connecting to report store %s: %w", s.params.Addr(), err)
	}
	defer conn.Close(ctx)

	doc := store.Document{
		"report": d.Report,
		"run":    s.info,
	}
	if err := conn.Collection(s.collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting report into %s: %w", s.collection, err)
	}
	s.log.WithField("collection", s.collection).Debug("report persisted")
	return nil
}
