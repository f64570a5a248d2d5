package errors

import (
	"context"
	"errors"
	"log/slog"
)

// Log writes err to the logger at the error level. The attributes of a
// *StructuredError anywhere in the chain are rendered as fields, preceded by
// its cause.
func Log(logger *slog.Logger, err error) {
	var se *StructuredError
	if !errors.As(err, &se) {
		logger.Error(err.Error())
		return
	}

	attrs := make([]slog.Attr, 0, len(se.attrs)+1)
	if se.cause != nil {
		attrs = append(attrs, slog.String("cause", se.cause.Error()))
	}
	attrs = append(attrs, se.attrs...)

	logger.LogAttrs(context.Background(), slog.LevelError, se.Error(), attrs...)
}
