package ghclient

import (
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/prstats/internal/contract"
)

// loggingTransport writes one JSON line per API request. Headers and bodies are never
// logged, so the token stays out of the file.
type loggingTransport struct {
	base   http.RoundTripper
	logger *logrus.Logger
}

func newLoggingTransport(base http.RoundTripper, w io.Writer) *loggingTransport {
	return &loggingTransport{base: base, logger: contract.NewRequestLogger(w)}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	u := *req.URL
	u.User = nil
	entry := t.logger.WithFields(logrus.Fields{
		"method":      req.Method,
		"url":         u.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("request failed")
		return resp, err
	}
	entry.WithField("status", resp.StatusCode).Info("request")
	return resp, nil
}
