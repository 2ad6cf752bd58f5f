package scheduler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/polishtutor/polishtutor/internal/logger"
)

func (d *Dispatcher) keepAlive() {
	status := "success"
	if err := d.ping(d.ctx); err != nil {
		status = "error"
		logger.Error("Keep-alive ping failed", map[string]interface{}{
			"url":   d.opts.SelfPingURL,
			"error": err.Error(),
		})
	}
	if d.recorder != nil {
		d.recorder.RecordKeepAlive(status)
	}
}

// ping issues one GET to the self-ping URL. Any 2xx or 3xx counts as alive.
func (d *Dispatcher) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.opts.SelfPingURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build keep-alive request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keep-alive request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("keep-alive returned HTTP %d", resp.StatusCode)
	}

	logger.Debug("Keep-alive ping sent", map[string]interface{}{
		"url":    d.opts.SelfPingURL,
		"status": resp.StatusCode,
	})
	return nil
}
