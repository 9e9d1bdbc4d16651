// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

// Package errutil provides helpers for logging structured errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Attrs extracts slog attributes from an error. For oops errors it
// includes the code and attached context; for plain errors just the
// message.
func Attrs(err error) []any {
	attrs := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != "" {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
	}
	return attrs
}

// LogError logs an operational failure with its full cause chain.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, Attrs(err)...)
}

// LogDebug logs an expected, non-alarming failure as a diagnostic
// trace.
func LogDebug(logger *slog.Logger, msg string, err error) {
	logger.Debug(msg, Attrs(err)...)
}
