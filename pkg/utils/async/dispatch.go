package async

import (
	"context"

	"github.com/plaza-hq/rostersync/pkg/utils/errutil"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// Dispatch runs handler in a new goroutine on a context detached from ctx's
// cancellation but carrying its logger. Errors and panics are logged and
// reported under name.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx).With("task", name))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}
