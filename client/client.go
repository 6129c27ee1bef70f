//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=mock/client.go
package client

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	defaultTimeout = 10 * time.Second
)

var tracer = otel.Tracer("client")

// Client posts webhook bodies to registered callback endpoints.
type Client interface {
	Post(ctx context.Context, url string, headers map[string]string, body []byte) (*http.Response, error)
}

type client struct {
	timeout time.Duration
}

func NewClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &client{timeout: timeout}
}

func (c *client) Post(ctx context.Context, url string, headers map[string]string, body []byte) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "Client.Post")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	httpClient := new(http.Client)
	httpClient.Timeout = c.timeout
	resp, err := httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return resp, nil
}
