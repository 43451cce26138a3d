/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbrmigrate

import (
	"strings"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/gocraft/dbr/v2"
)

// SlowQueryLogEventReceiver implements the dbr.EventReceiver interface
// and logs a warning for every query that takes longer than the threshold.
// Queries annotated with a comment starting with annotationPrefix are logged
// with the annotation instead of the full SQL text.
type SlowQueryLogEventReceiver struct {
	*dbr.NullEventReceiver
	logger           log.FieldLogger
	longQueryTime    time.Duration
	annotationPrefix string
}

// NewSlowQueryLogEventReceiver creates a new SlowQueryLogEventReceiver.
func NewSlowQueryLogEventReceiver(
	logger log.FieldLogger, longQueryTime time.Duration, annotationPrefix string,
) *SlowQueryLogEventReceiver {
	return &SlowQueryLogEventReceiver{
		NullEventReceiver: &dbr.NullEventReceiver{},
		logger:            logger,
		longQueryTime:     longQueryTime,
		annotationPrefix:  annotationPrefix,
	}
}

// TimingKv logs the query when its duration exceeds the threshold.
func (r *SlowQueryLogEventReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	elapsed := time.Duration(nanoseconds)
	if elapsed < r.longQueryTime {
		return
	}
	query := kvs["sql"]
	if annotation := extractQueryAnnotation(query, r.annotationPrefix); annotation != "" {
		r.logger.Warn("slow SQL query",
			log.String("annotation", annotation),
			log.Int64("duration_ms", elapsed.Milliseconds()),
		)
		return
	}
	r.logger.Warn("slow SQL query",
		log.String("query", query),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	)
}

// extractQueryAnnotation finds the first comment annotation with the passed
// prefix in the query text. dbr renders comments as "/* annotation */" lines
// before the statement.
func extractQueryAnnotation(query, prefix string) string {
	if prefix == "" {
		return ""
	}
	i := strings.Index(query, prefix)
	if i == -1 {
		return ""
	}
	annotation := query[i:]
	if j := strings.IndexAny(annotation, " \t\n*"); j != -1 {
		annotation = annotation[:j]
	}
	return annotation
}
