package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"campus-coin-ledger/internal/core/domain"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() domain.LedgerEvent {
	return domain.LedgerEvent{
		Type:                 domain.EventEntryCreated,
		EntryID:              "6f1c1d2e-0000-4000-8000-000000000001",
		Kind:                 domain.EntryKindTransfer,
		SourceAccountID:      "src",
		DestinationAccountID: "dst",
		Amount:               "250.00",
		OccurredAt:           time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	pub := NewKafkaPublisher(producer, "ledger.entries", "", zerolog.Nop())

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "ledger.entries" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != testEvent().EntryID {
			return fmt.Errorf("unexpected key %q", key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got domain.LedgerEvent
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.Amount != "250.00" || got.Type != domain.EventEntryCreated {
			return fmt.Errorf("unexpected payload %s", value)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != domain.EventEntryCreated {
			return errors.New("missing event_type header")
		}
		return nil
	})

	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_SignsMessages(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	pub := NewKafkaPublisher(producer, "ledger.entries", "event-key", zerolog.Nop())

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		for _, h := range msg.Headers {
			if string(h.Key) != HeaderSignature {
				continue
			}
			if !VerifyEvent([]byte("event-key"), value, string(h.Value)) {
				return errors.New("signature does not match payload")
			}
			return nil
		}
		return errors.New("missing signature header")
	})

	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_PublishFails(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	pub := NewKafkaPublisher(producer, "ledger.entries", "", zerolog.Nop())

	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	err := pub.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, pub.Close())
}

func TestNewKafkaConfig(t *testing.T) {
	cfg := NewKafkaConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.NoError(t, p.Close())
}
