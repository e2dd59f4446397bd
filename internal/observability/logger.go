// Package observability wraps zerolog for structured logging and exposes
// the Prometheus gauges/counters the runtime publishes.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with ArchDrop's chained-context helpers.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger builds a Logger that writes structured, timestamped events to
// output (stdout if nil).
func NewLogger(mode string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", "archdrop").
		Str("mode", mode).
		Logger()

	return &Logger{logger: logger}
}

// Zerolog exposes the underlying logger for packages (apierr, gin
// middleware) that want to attach it directly.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}

// WithToken scopes subsequent log lines to one session's token.
func (l *Logger) WithToken(token string) *Logger {
	return &Logger{logger: l.logger.With().Str("token", shortToken(token)).Logger()}
}

// WithFile scopes subsequent log lines to one file within a transfer.
func (l *Logger) WithFile(relativePath string, size uint64) *Logger {
	return &Logger{logger: l.logger.With().
		Str("file", relativePath).
		Uint64("size", size).
		Logger(),
	}
}

func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *Logger) Error(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

func (l *Logger) Fatal(err error, msg string) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// SessionClaimed logs a successful claim of a send or receive session.
func (l *Logger) SessionClaimed(token, clientID, mode string) {
	l.logger.Info().
		Str("token", shortToken(token)).
		Str("client_id", clientID).
		Str("transfer_mode", mode).
		Msg("session claimed")
}

// TransferProgress logs a progress sample.
func (l *Logger) TransferProgress(token string, processed, total uint64) {
	var pct float64
	if total > 0 {
		pct = float64(processed) / float64(total) * 100
	}
	l.logger.Info().
		Str("token", shortToken(token)).
		Uint64("chunks_processed", processed).
		Uint64("total_chunks", total).
		Float64("progress_percent", pct).
		Msg("transfer progress")
}

// TransferCompleted logs a session reaching the Completed state.
func (l *Logger) TransferCompleted(token string) {
	l.logger.Info().Str("token", shortToken(token)).Msg("transfer completed")
}

// ChunkAuthFailed logs a chunk that failed AEAD authentication.
func (l *Logger) ChunkAuthFailed(token string, fileIndex, chunkIndex uint64) {
	l.logger.Error().
		Str("token", shortToken(token)).
		Uint64("file_index", fileIndex).
		Uint64("chunk_index", chunkIndex).
		Msg("chunk authentication failed")
}

// TunnelAcquired logs a successfully published tunnel hostname.
func (l *Logger) TunnelAcquired(hostname string) {
	l.logger.Info().Str("hostname", hostname).Msg("tunnel acquired")
}

// shortToken avoids ever logging a full session token verbatim: eight
// characters are enough to correlate log lines without reproducing a
// capability-bearing value in full.
func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
