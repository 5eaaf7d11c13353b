// internal/domain/analytics/sink.go
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-membership/internal/config"
)

// Sink forwards tracked events to an external analytics system
type Sink interface {
	Name() string
	Forward(ctx context.Context, e Event) error
}

// NopSink drops every event
type NopSink struct{}

func (NopSink) Name() string                         { return "none" }
func (NopSink) Forward(context.Context, Event) error { return nil }

// HTTPSink posts events as JSON to a collector endpoint
type HTTPSink struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPSink creates a sink posting to url
func NewHTTPSink(url, apiKey string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Forward(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics sink returned status %d", resp.StatusCode)
	}
	return nil
}

// RedisStreamSink appends events to a redis stream for downstream consumers
type RedisStreamSink struct {
	client *redis.Client
	stream string
}

// NewRedisStreamSink creates a sink writing to stream
func NewRedisStreamSink(client *redis.Client, stream string) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Forward(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":            e.ID,
			"type":          string(e.Type),
			"membership_id": e.MembershipID,
			"customer_id":   e.CustomerID,
			"service_id":    e.ServiceID,
			"amount":        e.Amount.String(),
			"order_value":   e.OrderValue.String(),
			"data":          string(data),
			"timestamp":     e.Timestamp.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add event to stream %s: %w", s.stream, err)
	}
	return nil
}

// NewSink builds the sink selected in configuration
func NewSink(cfg config.AnalyticsConfig, redisClient *redis.Client) Sink {
	switch cfg.Sink {
	case "http":
		return NewHTTPSink(cfg.SinkURL, cfg.SinkAPIKey, cfg.ForwardTimeout)
	case "redis":
		if redisClient != nil {
			return NewRedisStreamSink(redisClient, cfg.RedisStream)
		}
	}
	return NopSink{}
}
