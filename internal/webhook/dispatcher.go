package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	id "keygate/pkg/domain"
)

const defaultDeliveryTimeout = 10 * time.Second

// HTTPDoer is the subset of http.Client the dispatcher needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Metrics counts per-hook delivery outcomes. Nil disables instrumentation.
type Metrics interface {
	IncrementWebhookDeliveries()
	IncrementWebhookFailures()
}

// Dispatcher delivers event payloads to subscribed hooks. Notify returns
// immediately; deliveries run in background goroutines tracked by a
// WaitGroup so Close can drain in-flight work on shutdown.
type Dispatcher struct {
	store    Store
	client   HTTPDoer
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
	metrics  Metrics

	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(c HTTPDoer) DispatcherOption {
	return func(d *Dispatcher) { d.client = c }
}

// WithDeliveryTimeout sets the per-hook delivery timeout.
func WithDeliveryTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// WithDispatcherLogger sets the logger for delivery outcomes.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the delivery outcome counters.
func WithMetrics(m Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher constructs a dispatcher over the given store.
func NewDispatcher(store Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		client:   &http.Client{Timeout: defaultDeliveryTimeout},
		registry: NewRegistry(),
		timeout:  defaultDeliveryTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify fans the payload out to every active hook subscribed to the event.
// It never blocks the caller and never returns delivery errors; failures
// are logged and dropped.
func (d *Dispatcher) Notify(ctx context.Context, appID id.AppID, p Payload) {
	hooks, err := d.store.ListActiveForEvent(ctx, appID, p.Event)
	if err != nil {
		d.logger.Error("webhook lookup failed",
			"application_id", appID.String(),
			"event", string(p.Event),
			"error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliverAll(hooks, p)
	}()
}

// Close waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) deliverAll(hooks []*Hook, p Payload) {
	g := new(errgroup.Group)
	for _, h := range hooks {
		hook := h
		g.Go(func() error {
			if err := d.deliver(hook, p); err != nil {
				if d.metrics != nil {
					d.metrics.IncrementWebhookFailures()
				}
				d.logger.Warn("webhook delivery failed",
					"webhook_id", hook.ID.String(),
					"url", hook.URL,
					"event", string(p.Event),
					"error", err)
				return nil
			}
			if d.metrics != nil {
				d.metrics.IncrementWebhookDeliveries()
			}
			return nil
		})
	}
	// Errors are handled per hook; the join only bounds goroutine lifetime.
	_ = g.Wait()
}

func (d *Dispatcher) deliver(hook *Hook, p Payload) error {
	body, err := d.registry.For(hook.URL)(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if hook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(hook.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	d.logger.Debug("webhook delivered",
		"webhook_id", hook.ID.String(),
		"url", hook.URL,
		"event", string(p.Event))
	return nil
}

// Sign computes the delivery signature over the exact request body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
