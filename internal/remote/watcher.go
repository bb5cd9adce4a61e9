package remote

import (
	"context"
	"errors"
	"io"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/model"
)

// Watcher implements pagecache.Subscriber over the Watch stream.
type Watcher struct {
	cl  *api.Client
	log *zap.Logger
}

// NewWatcher wraps a client. log may be nil.
func NewWatcher(cl *api.Client, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{cl: cl, log: log}
}

// Subscribe opens a stream and forwards its events until ctx ends or the stream breaks.
func (w *Watcher) Subscribe(ctx context.Context, table model.Table, scopeID uuid.UUID) (<-chan model.ChangeEvent, error) {
	stream, err := w.cl.Watch(ctx, &api.WatchRequest{Table: table, ScopeID: scopeID})
	if err != nil {
		return nil, fromStatus(err)
	}
	out := make(chan model.ChangeEvent)
	go func() {
		defer close(out)
		for {
			ev, err := stream.Recv()
			if err != nil {
				if err = fromStatus(err); !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
					w.log.Warn("watch stream ended", zap.String("table", string(table)), zap.Error(err))
				}
				return
			}
			select {
			case out <- *ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
