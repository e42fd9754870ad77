package logger

import (
	"fmt"
	"log/slog"

	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
)

// errorAttrReplacer expands error attributes with a verbose representation,
// including the wrap chain recorded by cockroachdb/errors.
func errorAttrReplacer(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 && (attr.Key == slogx.ErrorKey || attr.Key == "err") {
		if err, ok := attr.Value.Any().(error); ok && err != nil {
			return slog.Group("", attr, slog.String("error_verbose", fmt.Sprintf("%+v", err)))
		}
	}
	return attr
}
