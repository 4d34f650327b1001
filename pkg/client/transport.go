package client

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/logging"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// loggingTransport stamps a request id on every request and logs the round
// trip at debug level. The id comes from the request context when set.
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := t.logger
	// An id set with logging.WithRequestID is shared by every call of one
	// invocation and is already a field of the invocation's logger.
	id := logging.GetRequestID(req.Context())
	if id == "" {
		id = uuid.New().String()
		log = log.With(zap.String("request_id", id))
	}
	req = req.Clone(req.Context())
	req.Header.Set(RequestIDHeader, id)

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("query", req.URL.RawQuery),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		log.Debug("request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	log.Debug("request completed", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
