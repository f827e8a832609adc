package eventlog

import (
	"context"
	"log/slog"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
)

// LoggedStore is a decorator for a Store that logs appends, conflicts and reads.
type LoggedStore struct {
	store  Store
	logger *logging.Logger
}

var _ Store = (*LoggedStore)(nil)

// WithLogging wraps store. A nil logger uses the default logger.
func WithLogging(store Store, logger *logging.Logger) *LoggedStore {
	return &LoggedStore{
		store:  store,
		logger: logging.OrDefault(logger).WithComponent(logging.Component("eventlog")),
	}
}

func (s *LoggedStore) Append(ctx context.Context, stream StreamID, evt Event, expectedVersion int) (AppendResult, error) {
	res, err := s.store.Append(ctx, stream, evt, expectedVersion)
	switch {
	case errors.IsVersionConflict(err):
		s.logger.WarnContext(ctx, "append rejected by version check",
			slog.String("stream", stream.String()),
			slog.Int("expected_version", expectedVersion),
			slog.Int("actual_version", res.Version),
		)
	case err != nil:
		s.logger.LogError(ctx, err, "append failed",
			slog.String("stream", stream.String()),
			slog.String("event_type", evt.Type),
		)
	default:
		s.logger.DebugContext(ctx, "event appended",
			slog.String("stream", stream.String()),
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
			slog.Int("version", res.Version),
		)
	}
	return res, err
}

func (s *LoggedStore) ReadStream(ctx context.Context, stream StreamID) ([]Event, error) {
	events, err := s.store.ReadStream(ctx, stream)
	if err != nil {
		s.logger.LogError(ctx, err, "read stream failed", slog.String("stream", stream.String()))
		return nil, err
	}
	s.logger.DebugContext(ctx, "stream read",
		slog.String("stream", stream.String()),
		slog.Int("events", len(events)),
	)
	return events, nil
}

func (s *LoggedStore) Streams(ctx context.Context) ([]StreamInfo, error) {
	streams, err := s.store.Streams(ctx)
	if err != nil {
		s.logger.LogError(ctx, err, "list streams failed")
		return nil, err
	}
	return streams, nil
}

func (s *LoggedStore) Close() error {
	return s.store.Close()
}
