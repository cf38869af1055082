package mongostore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/event"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
)

// newCommandMonitor republishes driver command events on the event bus.
func newCommandMonitor() *event.CommandMonitor {
	var collections sync.Map // request id -> collection name
	finish := func(ctx context.Context, e event.CommandFinishedEvent, err error) {
		coll, _ := collections.LoadAndDelete(e.RequestID)
		name, _ := coll.(string)
		eventbus.Publish(ctx, events.MongoCommandFinish{
			RequestID:  e.RequestID,
			Database:   e.DatabaseName,
			Collection: name,
			Command:    e.CommandName,
			Err:        err,
			Duration:   e.Duration,
		})
	}
	return &event.CommandMonitor{
		Started: func(ctx context.Context, e *event.CommandStartedEvent) {
			name, _ := e.Command.Lookup(e.CommandName).StringValueOK()
			collections.Store(e.RequestID, name)
			eventbus.Publish(ctx, events.MongoCommandStart{
				RequestID:  e.RequestID,
				Database:   e.DatabaseName,
				Collection: name,
				Command:    e.CommandName,
			})
		},
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			finish(ctx, e.CommandFinishedEvent, nil)
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			finish(ctx, e.CommandFinishedEvent, e.Failure)
		},
	}
}
