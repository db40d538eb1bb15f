package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// Ledger receives a record for every delivered submission.
type Ledger interface {
	AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error
}

// HTTPTransport POSTs submissions to the collection endpoint as
// {formType, data} JSON and classifies the HTTP outcome.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	ledger   Ledger
	log      *zap.Logger
	tracer   trace.Tracer
}

func NewHTTPTransport(endpoint string, timeout time.Duration, ledger Ledger, log *zap.Logger) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		ledger:   ledger,
		log:      log,
		tracer:   otel.Tracer("go-submitq"),
	}
}

type requestBody struct {
	FormType string            `json:"formType"`
	Data     map[string]string `json:"data"`
}

type responseBody struct {
	Success    bool   `json:"success"`
	ID         string `json:"id"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"` // seconds
}

func (t *HTTPTransport) Send(ctx context.Context, sub submission.Submission) (Ack, error) {
	ctx, span := t.tracer.Start(ctx, "Send",
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(http.MethodPost),
			semconv.HTTPURLKey.String(t.endpoint),
			attribute.String("submission.form_type", string(sub.FormType)),
			attribute.String("submission.id", sub.QueueID),
		),
	)
	defer span.End()

	body, err := json.Marshal(requestBody{FormType: string(sub.FormType), Data: sub.Payload})
	if err != nil {
		span.RecordError(err)
		return Ack{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return Ack{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		netErr := &NetworkError{Err: err}
		span.RecordError(netErr)
		return Ack{}, netErr
	}
	defer resp.Body.Close()

	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(resp.StatusCode))

	// The endpoint may answer with an empty or non-JSON body on errors.
	raw, _ := io.ReadAll(resp.Body)
	var parsed responseBody
	_ = json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := t.ledger.AppendRecord(ctx, sub.Record(time.Now())); err != nil {
			// delivery already happened; a ledger write failure must not undo it
			t.log.Warn("Failed to record delivered submission",
				zap.String("id", sub.QueueID), zap.Error(err))
		}
		return Ack{ID: parsed.ID}, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		rlErr := &RateLimitedError{
			Message:    parsed.Error,
			RetryAfter: time.Duration(parsed.RetryAfter) * time.Second,
		}
		span.RecordError(rlErr)
		return Ack{}, rlErr

	default:
		message := parsed.Error
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		srErr := &ServerRejectedError{StatusCode: resp.StatusCode, Message: message}
		span.RecordError(srErr)
		return Ack{}, srErr
	}
}
