package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord ties a client idempotency key to the entry it produced.
type IdempotencyRecord struct {
	Key       string    `json:"key"` // Format: "<account_id>:<client_key>"
	EntryID   uuid.UUID `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildTransferIdempotencyKey scopes a client key to the granting instructor.
func BuildTransferIdempotencyKey(instructorID uuid.UUID, key string) string {
	return instructorID.String() + ":" + key
}

// BuildRedeemIdempotencyKey scopes a client key to the redeeming student.
func BuildRedeemIdempotencyKey(studentID uuid.UUID, key string) string {
	return studentID.String() + ":redeem:" + key
}
