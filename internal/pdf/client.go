// Package pdf содержит клиент внешнего сервиса конвертации HTML в PDF.
// Сервис — чёрный ящик: POST с HTML, в ответ байты PDF либо ошибка.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

const (
	defaultCallTimeout = 15 * time.Second
	// maxResponseSize ограничивает размер принимаемого PDF.
	maxResponseSize = 32 << 20
)

var (
	// ErrUnavailable — временная ошибка сервиса конвертации (сеть, 5xx, таймаут).
	// Воркер ретраит такие вызовы с backoff.
	ErrUnavailable = errors.New("pdf converter unavailable")
	// ErrRejected — сервис конвертации отверг вход (4xx). Ретраить бессмысленно.
	ErrRejected = errors.New("pdf converter rejected input")
)

// IsTransient сообщает, стоит ли повторять вызов конвертации.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Client вызывает HTTP-сервис конвертации с таймаутом на каждый вызов.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	callTimeout time.Duration
	logger      *log.Entry
}

// Option настраивает Client.
type Option func(*Client)

// WithCallTimeout задаёт таймаут одного вызова конвертации.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient подменяет транспорт (для тестов).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger задаёт logger для клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient создаёт клиент конвертации для baseURL.
func NewClient(baseURL string, options ...Option) *Client {
	client := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		callTimeout: defaultCallTimeout,
		logger:      log.WithField("component", "pdf-client"),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Convert отправляет HTML и возвращает байты PDF.
// Таймаут вызова и сетевые ошибки классифицируются как временные.
func (c *Client) Convert(ctx context.Context, html string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL, bytes.NewBufferString(html))
	if err != nil {
		return nil, fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")
	req.Header.Set("Accept", "application/pdf")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Любая сетевая ошибка, включая таймаут, считается временной.
		c.logger.WithError(err).Warn("conversion call failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrRejected)
	}

	c.logger.WithFields(log.Fields{
		"bytes":       len(data),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("conversion succeeded")

	return data, nil
}

var _ domain.Converter = (*Client)(nil)
