// Package automaxprocs sets GOMAXPROCS from the container CPU quota and logs the change.
package automaxprocs

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"go.uber.org/automaxprocs/maxprocs"
)

// Init sets GOMAXPROCS to the CPU quota of the container, if any. An explicit
// GOMAXPROCS environment variable takes precedence. It returns a function
// restoring the previous value.
func Init(ctx context.Context) (undo func(), err error) {
	ctx = logger.WithContext(ctx,
		slogx.String("package", "automaxprocs"),
		slogx.String("event", "set_gomaxprocs"),
		slogx.Int("prev_maxprocs", runtime.GOMAXPROCS(0)),
	)

	printf := func(format string, args ...any) {
		// maxprocs passes no value when GOMAXPROCS is left unchanged
		if _, ok := os.LookupEnv("GOMAXPROCS"); ok || len(args) == 0 {
			logger.InfoContext(ctx, fmt.Sprintf(format, args...))
			return
		}
		logger.InfoContext(ctx, fmt.Sprintf(format, args...), slogx.Any("set_maxprocs", args[0]))
	}

	undo, err = maxprocs.Set(maxprocs.Logger(printf), maxprocs.Min(1))
	if err != nil {
		return func() {}, errors.Wrap(err, "failed to set GOMAXPROCS")
	}
	return undo, nil
}
