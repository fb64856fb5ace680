// Package webhook notifies merchants of payment outcomes with signed HTTP
// deliveries and keeps an append-only log of every attempt.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"lumepay/internal/models"
	"lumepay/internal/repositories"

	"github.com/rs/zerolog"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultWorkers   = 4
	DefaultQueueSize = 256

	errQueueFull = "webhook queue full"
)

// DefaultRetryDelays gives up to three retries after the first attempt.
var DefaultRetryDelays = []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}

// ErrNotDeliverable means the merchant has not enabled, configured or
// subscribed to this event. Nothing is sent or recorded.
var ErrNotDeliverable = errors.New("webhook not deliverable")

// Store is what the dispatcher needs from persistence.
type Store interface {
	GetSettings(ctx context.Context, userID string) (*models.WebhookSettings, error)
	CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error
}

// Notifier is the fire-and-forget entry point used by the payment engine.
type Notifier interface {
	SendWebhook(merchantID string, payment models.Payment)
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	Timeout     time.Duration
	RetryDelays []time.Duration
	Now         func() time.Time
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

type job struct {
	merchantID string
	payment    models.Payment
	attempt    int
}

// Dispatcher runs webhook deliveries on a bounded queue drained by a fixed
// worker pool. Failed attempts are rescheduled with timers, never by
// blocking a worker.
type Dispatcher struct {
	store  Store
	client *http.Client
	config DispatcherConfig
	log    zerolog.Logger

	queue chan job

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc

	workers sync.WaitGroup
	pending sync.WaitGroup
}

func NewDispatcher(store Store, config DispatcherConfig, log zerolog.Logger) *Dispatcher {
	if store == nil {
		panic("store is required")
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryDelays == nil {
		config.RetryDelays = DefaultRetryDelays
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Dispatcher{
		store:  store,
		client: client,
		config: config,
		log:    log,
		queue:  make(chan job, config.QueueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	for i := 0; i < d.config.Workers; i++ {
		d.workers.Add(1)
		go d.worker(ctx)
	}
	d.log.Info().Int("workers", d.config.Workers).Msg("webhook dispatcher started")
}

// Stop cancels scheduled retries and waits for in-flight deliveries to
// finish and be recorded. Jobs still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.workers.Wait()
	d.pending.Wait()

	if n := len(d.queue); n > 0 {
		d.log.Warn().Int("dropped", n).Msg("webhook dispatcher stopped with queued jobs")
	}
}

// SendWebhook queues the first delivery attempt for a payment outcome and
// returns immediately.
func (d *Dispatcher) SendWebhook(merchantID string, payment models.Payment) {
	d.submit(job{merchantID: merchantID, payment: payment})
}

func (d *Dispatcher) submit(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn().Str("payment_id", j.payment.ID).Msg("webhook dispatcher stopped, delivery skipped")
		return
	}

	select {
	case d.queue <- j:
	default:
		d.pending.Add(1)
		go func() {
			defer d.pending.Done()
			d.recordDropped(j)
		}()
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			d.process(ctx, j)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	// An attempt already taken off the queue runs to completion after Stop;
	// the client timeout bounds it.
	err := d.Deliver(context.WithoutCancel(ctx), j.merchantID, &j.payment, j.attempt)
	if err == nil || errors.Is(err, ErrNotDeliverable) {
		return
	}

	if j.attempt >= len(d.config.RetryDelays) {
		d.log.Warn().
			Str("merchant_id", j.merchantID).
			Str("payment_id", j.payment.ID).
			Int("attempts", j.attempt+1).
			Msg("webhook delivery abandoned")
		return
	}

	delay := d.config.RetryDelays[j.attempt]
	next := j
	next.attempt++

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.submit(next)
		}
	}()
}

// Deliver makes one synchronous attempt: load settings, sign, POST and log
// the outcome. attempt is zero-based.
func (d *Dispatcher) Deliver(ctx context.Context, merchantID string, payment *models.Payment, attempt int) error {
	settings, err := d.store.GetSettings(ctx, merchantID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return ErrNotDeliverable
		}
		return fmt.Errorf("load webhook settings: %w", err)
	}

	if !settings.Deliverable(models.EventFor(payment)) {
		return ErrNotDeliverable
	}

	delivery, err := d.Send(ctx, settings, payment, attempt)
	if err != nil {
		return err
	}
	if delivery.Status != models.DeliverySuccess {
		return fmt.Errorf("webhook delivery failed: %s", deref(delivery.Error))
	}
	return nil
}

// Send posts the signed payload to the configured URL regardless of
// subscriptions and records the attempt. The returned error is only set
// when the attempt could not be built or logged; endpoint failures are
// reported through the delivery's status.
func (d *Dispatcher) Send(ctx context.Context, settings *models.WebhookSettings, payment *models.Payment, attempt int) (*models.WebhookDelivery, error) {
	if settings.URL == nil || settings.Secret == nil {
		return nil, ErrNotDeliverable
	}

	payload := BuildPayload(payment, d.config.Now())
	body, err := payload.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	delivery := &models.WebhookDelivery{
		UserID:    settings.UserID,
		PaymentID: payment.ID,
		Event:     payload.Event,
		Attempts:  attempt + 1,
	}

	statusCode, sendErr := d.post(ctx, *settings.URL, body, Sign(body, *settings.Secret), payload.Timestamp)
	if statusCode != 0 {
		delivery.StatusCode = &statusCode
	}
	if sendErr != nil {
		msg := sendErr.Error()
		delivery.Status = models.DeliveryFailed
		delivery.Error = &msg
	} else {
		delivery.Status = models.DeliverySuccess
	}

	if err := d.store.CreateDelivery(context.WithoutCancel(ctx), delivery); err != nil {
		d.log.Error().Err(err).Str("payment_id", payment.ID).Msg("failed to record webhook delivery")
		return delivery, fmt.Errorf("record webhook delivery: %w", err)
	}

	d.log.Debug().
		Str("merchant_id", settings.UserID).
		Str("payment_id", payment.ID).
		Str("event", string(payload.Event)).
		Str("status", string(delivery.Status)).
		Int("attempt", delivery.Attempts).
		Msg("webhook attempt")
	return delivery, nil
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte, signature, timestamp string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(TimestampHeader, timestamp)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// recordDropped logs an attempt that never left the process because the
// queue was full, so the merchant can retry it by hand.
func (d *Dispatcher) recordDropped(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings, err := d.store.GetSettings(ctx, j.merchantID)
	if err != nil || !settings.Deliverable(models.EventFor(&j.payment)) {
		return
	}

	msg := errQueueFull
	delivery := &models.WebhookDelivery{
		UserID:    j.merchantID,
		PaymentID: j.payment.ID,
		Event:     models.EventFor(&j.payment),
		Status:    models.DeliveryFailed,
		Error:     &msg,
		Attempts:  j.attempt + 1,
	}
	if err := d.store.CreateDelivery(ctx, delivery); err != nil {
		d.log.Error().Err(err).Str("payment_id", j.payment.ID).Msg("failed to record dropped webhook")
		return
	}
	d.log.Warn().Str("payment_id", j.payment.ID).Msg(errQueueFull)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
