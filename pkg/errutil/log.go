// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package errutil holds helpers for oops-coded errors shared across packages.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops code carried by err, or "" for plain errors.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

// LogError logs err at ERROR. Oops errors contribute their code and context
// as separate attributes. Extra attrs are appended as given.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]any, 0, len(attrs)+6)
	out = append(out, "error", err.Error())
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			out = append(out, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			out = append(out, "context", ctx)
		}
	}
	out = append(out, attrs...)
	logger.Error(msg, out...)
}
