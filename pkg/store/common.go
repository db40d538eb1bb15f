package store

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// historyCap bounds the delivery ledger; oldest entries are evicted first.
const historyCap = 50

const tracerName = "go-submitq"

func addDBStatsToSpan(span trace.Span, system, statement string, rows int) {
	span.SetAttributes(
		attribute.String("db.system", system),
		attribute.String("db.statement", statement),
		attribute.Int("rowsCount", rows),
	)
}
