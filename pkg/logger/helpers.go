package logger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogFetchProgress reports how many posts a paginated fetch has accumulated
func LogFetchProgress(l Logger, source string, loaded, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(loaded) / float64(total) * 100
	}
	l.WithFields(map[string]interface{}{
		"source":     source,
		"loaded":     loaded,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Fetch progress")
}

// LogArchiveEntry records the outcome of one media download destined for an archive
func LogArchiveEntry(l Logger, postID, filename string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"post_id":  postID,
		"filename": filename,
	})
	if err != nil {
		entry.WithError(err).Warn("Media download failed")
		return
	}
	entry.Debug("Media added to archive")
}

// LogRateLimit logs a throttled or 429'd request
func LogRateLimit(l Logger, endpoint string, waitMillis int64) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait_ms":  waitMillis,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Debug("Component started")
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
