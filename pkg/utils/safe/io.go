package safe

import (
	"context"
	"fmt"
	"io"

	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// Close closes closer and logs a failure with the closer's type. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close resource",
			"resource", fmt.Sprintf("%T", closer),
			"error", err.Error())
	}
}
