package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/golang-migrate/migrate/v4"
)

var _ migrate.Logger = (*migrateLogger)(nil)

// migrateLogger forwards golang-migrate messages to the application logger.
type migrateLogger struct {
	ctx     context.Context
	verbose bool
}

func newMigrateLogger(ctx context.Context, module string, verbose bool) *migrateLogger {
	return &migrateLogger{
		ctx:     logger.WithContext(ctx, slogx.String("package", "migrate"), slogx.String("module", module)),
		verbose: verbose,
	}
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logger.InfoContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
