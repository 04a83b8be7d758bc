package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrBodyTooLarge is returned when a response body exceeds the configured limit
var ErrBodyTooLarge = errors.New("response body too large")

// ReadLimitedBody reads and closes the response body, failing when it exceeds maxBytes.
// A maxBytes of zero or less reads without limit.
func ReadLimitedBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("Failed to close response body", "error", closeErr)
		}
	}()

	if maxBytes <= 0 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, maxBytes)
	}
	return body, nil
}

// IsSuccess reports whether the status code is in the 2xx range
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// EnsureSuccess checks that the response carries a 2xx status
func EnsureSuccess(resp *http.Response) error {
	if !IsSuccess(resp.StatusCode) {
		return fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

// GetContentType returns the content type of the response
func GetContentType(resp *http.Response) string {
	return resp.Header.Get("Content-Type")
}
