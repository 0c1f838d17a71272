package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"sync"
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/pkg/metrics"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var mailTemplates embed.FS

const (
	qrCodeBaseURL   = "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="
	mailSendTimeout = 30 * time.Second
)

// mailRetryIntervals are the waits before each redelivery attempt.
var mailRetryIntervals = []time.Duration{
	2 * time.Second,
	10 * time.Second,
}

var mailKinds = map[domain.NotificationKind]struct {
	file    string
	subject string
}{
	domain.NotificationTransferReceipt:      {"transfer_receipt.html", "You received %s coins"},
	domain.NotificationTransferConfirmation: {"transfer_confirmation.html", "Transfer of %s coins confirmed"},
	domain.NotificationCouponIssued:         {"coupon_issued.html", "Your coupon for %s"},
	domain.NotificationPartnerRedemption:    {"partner_redemption.html", "Reward redeemed: %s"},
}

// mailData is the template view of a notification.
type mailData struct {
	domain.Notification
	QRCodeURL string
}

// NotificationDispatcher implements ports.Notifier with a bounded queue
// drained by a fixed worker pool. Notify never blocks: a full queue drops
// the message with a warning.
type NotificationDispatcher struct {
	mailer    ports.Mailer
	templates *template.Template
	queue     chan domain.Notification
	retries   []time.Duration
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotificationDispatcher parses the mail templates and starts workers.
func NewNotificationDispatcher(mailer ports.Mailer, workers, queueSize int, log zerolog.Logger) (*NotificationDispatcher, error) {
	tmpl, err := template.ParseFS(mailTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing mail templates: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &NotificationDispatcher{
		mailer:    mailer,
		templates: tmpl,
		queue:     make(chan domain.Notification, queueSize),
		retries:   mailRetryIntervals,
		log:       log.With().Str("component", "notifier").Logger(),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d, nil
}

// Notify enqueues n for delivery.
func (d *NotificationDispatcher) Notify(_ context.Context, n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Str("kind", string(n.Kind)).Msg("dispatcher closed, dropping notification")
		return
	}

	select {
	case d.queue <- n:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		metrics.NotificationsDropped.Inc()
		d.log.Warn().
			Str("kind", string(n.Kind)).
			Str("entry_id", n.EntryID).
			Msg("notification queue full, dropping notification")
	}
}

// Close stops accepting notifications and waits for queued ones to drain.
func (d *NotificationDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.deliver(n)
	}
}

// deliver renders and sends one message, retrying transient failures.
// Failures end in a log line only.
func (d *NotificationDispatcher) deliver(n domain.Notification) {
	if n.RecipientEmail == "" {
		d.log.Debug().Str("kind", string(n.Kind)).Msg("no recipient email, skipping")
		return
	}

	mail, err := d.Render(n)
	if err != nil {
		d.log.Error().Err(err).Str("kind", string(n.Kind)).Msg("failed to render notification")
		return
	}

	for attempt := 0; attempt <= len(d.retries); attempt++ {
		if attempt > 0 {
			time.Sleep(d.retries[attempt-1])
		}

		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		err = d.mailer.Send(ctx, mail)
		cancel()
		if err == nil {
			d.log.Info().
				Str("kind", string(n.Kind)).
				Str("entry_id", n.EntryID).
				Int("attempt", attempt+1).
				Msg("notification delivered")
			return
		}
		d.log.Warn().Err(err).Str("kind", string(n.Kind)).Int("attempt", attempt+1).Msg("notification delivery failed")
	}

	d.log.Error().Str("kind", string(n.Kind)).Str("entry_id", n.EntryID).Msg("notification retries exhausted")
}

// Render builds the outgoing mail for n.
func (d *NotificationDispatcher) Render(n domain.Notification) (ports.Mail, error) {
	kind, ok := mailKinds[n.Kind]
	if !ok {
		return ports.Mail{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	data := mailData{Notification: n}
	if n.ValidationCode != "" {
		data.QRCodeURL = QRCodeURL(n.ValidationCode)
	}

	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, kind.file, data); err != nil {
		return ports.Mail{}, fmt.Errorf("executing %s: %w", kind.file, err)
	}

	subjectArg := n.Amount
	if n.Kind == domain.NotificationCouponIssued || n.Kind == domain.NotificationPartnerRedemption {
		subjectArg = n.RewardTitle
	}
	subject := fmt.Sprintf(kind.subject, subjectArg)

	return ports.Mail{
		ToName:  n.RecipientName,
		ToEmail: n.RecipientEmail,
		Subject: subject,
		HTML:    buf.String(),
		Text:    plainText(subject, n),
	}, nil
}

// QRCodeURL returns an image URL encoding the coupon code.
func QRCodeURL(code string) string {
	return qrCodeBaseURL + url.QueryEscape(code)
}

func plainText(subject string, n domain.Notification) string {
	text := subject + "."
	if n.ValidationCode != "" {
		text += " Coupon code: " + n.ValidationCode + "."
	}
	if n.Balance != "" {
		text += " Balance: " + n.Balance + " coins."
	}
	return text
}
