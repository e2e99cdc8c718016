package safe_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
	"github.com/plaza-hq/rostersync/pkg/utils/safe"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestClose(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	t.Run("nil closer", func(t *testing.T) {
		safe.Close(ctx, nil)
	})

	t.Run("closes once", func(t *testing.T) {
		calls := 0
		safe.Close(ctx, closerFunc(func() error {
			calls++
			return nil
		}))
		gt.Number(t, calls).Equal(1)
		gt.Number(t, buf.Len()).Equal(0)
	})

	t.Run("logs close error", func(t *testing.T) {
		safe.Close(ctx, closerFunc(func() error {
			return errors.New("disk gone")
		}))
		gt.String(t, buf.String()).Contains("disk gone")
		gt.String(t, buf.String()).Contains("safe_test.closerFunc")
	})
}
