// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

type contextKey string

const contextKeyLogger = contextKey("s3concat-logger")

// SetupLogger attaches a console zerolog logger to the context. All
// package logging goes to stderr so reports on stdout stay parseable.
func SetupLogger(incoming context.Context) context.Context {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	return context.WithValue(incoming, contextKeyLogger, logger)
}

// SetLogLevel returns a context whose logger filters below level.
// Levels follow zerolog: -1 trace, 0 debug, 1 info, 2 warn, 3 error.
func SetLogLevel(ctx context.Context, level int) context.Context {
	logger := getLogger(ctx).Level(zerolog.Level(level))
	return context.WithValue(ctx, contextKeyLogger, logger)
}

func Debugf(ctx context.Context, format string, v ...interface{}) {
	getLogger(ctx).Debug().Msgf(format, v...)
}

func Infof(ctx context.Context, format string, v ...interface{}) {
	getLogger(ctx).Info().Msgf(format, v...)
}

func Warnf(ctx context.Context, format string, v ...interface{}) {
	getLogger(ctx).Warn().Msgf(format, v...)
}

// Errorf logs regardless of level but does not stop the run.
func Errorf(ctx context.Context, format string, v ...interface{}) {
	getLogger(ctx).Error().Msgf(format, v...)
}

func getLogger(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(contextKeyLogger).(zerolog.Logger); ok {
		return &logger
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &logger
}
