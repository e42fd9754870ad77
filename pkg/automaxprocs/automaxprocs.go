// Package automaxprocs aligns GOMAXPROCS with the container CPU quota and
// logs the outcome through the service logger.
package automaxprocs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	"go.uber.org/automaxprocs/maxprocs"
)

func Init() error {
	logger := logger.With(
		slogx.String("package", "automaxprocs"),
		slogx.String("event", "set_gomaxprocs"),
		slogx.Int("prev_maxprocs", Current()),
	)

	setMaxProcLogger := func(format string, v ...any) {
		fields := make([]slog.Attr, 0, 1)

		// `maxprocs.Set` passes the GOMAXPROCS value it applied, unless the
		// GOMAXPROCS environment variable overrode it.
		if val, ok := utils.Optional(v); ok {
			if _, exists := os.LookupEnv("GOMAXPROCS"); exists {
				val = Current()
			}
			if setmaxprocs, ok := val.(int); ok {
				fields = append(fields, slogx.Int("set_maxprocs", setmaxprocs))
			}
		}

		logger.LogAttrs(context.Background(), slog.LevelInfo, fmt.Sprintf(format, v...), fields...)
	}

	// Set is a no-op on non-Linux systems and in Linux environments without a
	// configured CPU quota.
	if _, err := maxprocs.Set(maxprocs.Logger(setMaxProcLogger), maxprocs.Min(1)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Current returns the current value of GOMAXPROCS.
func Current() int {
	return runtime.GOMAXPROCS(0)
}
