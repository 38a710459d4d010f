package storage

import (
	"context"

	"valuationScope/internal/model"
)

// SnapshotSink is a destination for materialized snapshot records.
type SnapshotSink interface {
	PutSnapshotBatch(ctx context.Context, records []model.SnapshotRecord) error
}

// MultiSink fans every batch out to all of its sinks.
type MultiSink []SnapshotSink

func (m MultiSink) PutSnapshotBatch(ctx context.Context, records []model.SnapshotRecord) error {
	for _, sink := range m {
		if err := sink.PutSnapshotBatch(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
