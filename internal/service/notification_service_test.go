package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/internal/core/ports/mocks"
	"campus-coin-ledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func couponNotification() domain.Notification {
	return domain.Notification{
		Kind:           domain.NotificationCouponIssued,
		RecipientName:  "Grace <script>",
		RecipientEmail: "grace@campus.test",
		Amount:         "80.00",
		Balance:        "20.00",
		RewardTitle:    "Cafeteria voucher",
		ValidationCode: "A1B2C3D4",
		EntryID:        "e-1",
	}
}

func TestNotificationDispatcher_Render(t *testing.T) {
	d, err := NewNotificationDispatcher(nil, 1, 1, newTestLogger())
	require.NoError(t, err)
	defer d.Close()

	mail, err := d.Render(couponNotification())
	require.NoError(t, err)
	assert.Equal(t, "grace@campus.test", mail.ToEmail)
	assert.Equal(t, "Your coupon for Cafeteria voucher", mail.Subject)
	assert.Contains(t, mail.HTML, "A1B2C3D4")
	assert.Contains(t, mail.HTML, "api.qrserver.com/v1/create-qr-code/?size=300x300&amp;data=A1B2C3D4")
	assert.Contains(t, mail.HTML, "Grace &lt;script&gt;", "names are HTML escaped")
	assert.NotContains(t, mail.HTML, "<script>")
	assert.Contains(t, mail.Text, "Coupon code: A1B2C3D4")

	for _, kind := range []domain.NotificationKind{
		domain.NotificationTransferReceipt,
		domain.NotificationTransferConfirmation,
		domain.NotificationPartnerRedemption,
	} {
		mail, err := d.Render(domain.Notification{Kind: kind, RecipientEmail: "x@y.z", Amount: "250.00", RewardTitle: "Book"})
		require.NoError(t, err, kind)
		assert.NotEmpty(t, mail.Subject)
		assert.Contains(t, mail.HTML, "Campus Coin")
	}

	_, err = d.Render(domain.Notification{Kind: "SMOKE_SIGNAL"})
	assert.Error(t, err)
}

func TestNotificationDispatcher_RenderEscapesMemoOnce(t *testing.T) {
	d, err := NewNotificationDispatcher(nil, 1, 1, newTestLogger())
	require.NoError(t, err)
	defer d.Close()

	mail, err := d.Render(domain.Notification{
		Kind:           domain.NotificationTransferReceipt,
		RecipientEmail: "x@y.z",
		Amount:         "5.00",
		Memo:           "Q&A <lab> bonus",
	})
	require.NoError(t, err)
	assert.Contains(t, mail.HTML, "Q&amp;A &lt;lab&gt; bonus")
	assert.NotContains(t, mail.HTML, "&amp;amp;")
}

func TestQRCodeURL(t *testing.T) {
	assert.Equal(t, "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=A1B2C3D4", QRCodeURL("A1B2C3D4"))
}

func TestNotificationDispatcher_DeliversAndRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)

	d, err := NewNotificationDispatcher(mailer, 2, 8, newTestLogger())
	require.NoError(t, err)
	d.retries = []time.Duration{time.Millisecond, time.Millisecond}

	gomock.InOrder(
		mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("503")),
		mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m ports.Mail) error {
			assert.Equal(t, "grace@campus.test", m.ToEmail)
			return nil
		}),
	)

	d.Notify(context.Background(), couponNotification())
	d.Close()
}

func TestNotificationDispatcher_GivesUpAfterRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)

	d, err := NewNotificationDispatcher(mailer, 1, 1, newTestLogger())
	require.NoError(t, err)
	d.retries = []time.Duration{time.Millisecond}

	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Times(2).Return(errors.New("smtp down"))

	d.Notify(context.Background(), couponNotification())
	d.Close()
}

func TestNotificationDispatcher_SkipsMissingEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)

	d, err := NewNotificationDispatcher(mailer, 1, 1, newTestLogger())
	require.NoError(t, err)

	n := couponNotification()
	n.RecipientEmail = ""
	d.Notify(context.Background(), n)
	d.Close()
}

// blockingMailer holds every Send until release is closed.
type blockingMailer struct {
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (m *blockingMailer) Send(_ context.Context, _ ports.Mail) error {
	<-m.release
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	return nil
}

func TestNotificationDispatcher_DropsWhenFull(t *testing.T) {
	mailer := &blockingMailer{release: make(chan struct{})}
	d, err := NewNotificationDispatcher(mailer, 1, 1, newTestLogger())
	require.NoError(t, err)

	droppedBefore := testutil.ToFloat64(metrics.NotificationsDropped)

	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), couponNotification())
	}
	assert.Less(t, time.Since(start), time.Second, "Notify never blocks the caller")

	// One in flight plus one queued at most.
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.NotificationsDropped)-droppedBefore, float64(3))

	close(mailer.release)
	d.Close()
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.LessOrEqual(t, mailer.sent, 2)
	assert.GreaterOrEqual(t, mailer.sent, 1)
}

func TestNotificationDispatcher_NotifyAfterClose(t *testing.T) {
	d, err := NewNotificationDispatcher(&blockingMailer{release: make(chan struct{})}, 1, 1, newTestLogger())
	require.NoError(t, err)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), couponNotification())
	})
}
