package dto

import (
	"strings"
	"testing"
	"unicode/utf8"

	"campus-coin-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := TransferRequest{
		StudentID: "  3f1c2b9e-8d7a-4c6b-9e5f-1a2b3c4d5e6f  ",
		Amount:    " 25.00 ",
		Memo:      "  great answer  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "3f1c2b9e-8d7a-4c6b-9e5f-1a2b3c4d5e6f", req.StudentID)
	assert.Equal(t, "25.00", req.Amount)
	assert.Equal(t, "great answer", req.Memo)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := ValidateCouponRequest{Code: " <b>A1B2C3D4</b> "}
	SanitizeStruct(&req)

	assert.Equal(t, "&lt;b&gt;A1B2C3D4&lt;/b&gt;", req.Code)
}

func TestSanitizeStruct_MemoIsOnlyTrimmed(t *testing.T) {
	req := TransferRequest{Memo: "  Q&A <lab> bonus  "}
	SanitizeStruct(&req)

	assert.Equal(t, "Q&A <lab> bonus", req.Memo)
}

func TestSanitizeStruct_MaxLengthMemoStaysWithinColumn(t *testing.T) {
	req := TransferRequest{
		StudentID: "3f1c2b9e-8d7a-4c6b-9e5f-1a2b3c4d5e6f",
		Amount:    "1.00",
		Memo:      strings.Repeat("&", 255),
	}
	require.NoError(t, binding.Validator.ValidateStruct(&req))

	SanitizeStruct(&req)
	assert.Equal(t, 255, utf8.RuneCountInString(req.Memo))
	assert.LessOrEqual(t, utf8.RuneCountInString(req.Memo), domain.MaxMemoLength)
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note *string
	}
	note := "  <b>bonus</b>  "
	v := withPtr{Note: &note}
	SanitizeStruct(&v)

	assert.Equal(t, "&lt;b&gt;bonus&lt;/b&gt;", *v.Note)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	type withPtr struct {
		Note *string
	}
	v := withPtr{}
	SanitizeStruct(&v)
	assert.Nil(t, v.Note)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"ref-001",
		"REF_002",
		"a.b.c",
		"K7Q2ZP4M",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"ref 001",     // space
		"ref<001>",    // angle brackets
		"ref;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"ref\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestBinding_TransferRequest(t *testing.T) {
	valid := TransferRequest{
		StudentID:      "3f1c2b9e-8d7a-4c6b-9e5f-1a2b3c4d5e6f",
		Amount:         "25.00",
		IdempotencyKey: "tx-001",
	}
	assert.NoError(t, binding.Validator.ValidateStruct(valid))

	badID := valid
	badID.StudentID = "not-a-uuid"
	assert.Error(t, binding.Validator.ValidateStruct(badID))

	badKey := valid
	badKey.IdempotencyKey = "tx 001"
	assert.Error(t, binding.Validator.ValidateStruct(badKey))

	longMemo := valid
	longMemo.Memo = strings.Repeat("é", 256)
	assert.Error(t, binding.Validator.ValidateStruct(longMemo))

	fullMemo := valid
	fullMemo.Memo = strings.Repeat("é", 255)
	assert.NoError(t, binding.Validator.ValidateStruct(fullMemo))
}

func TestBinding_MemoText(t *testing.T) {
	req := TransferRequest{
		StudentID: "3f1c2b9e-8d7a-4c6b-9e5f-1a2b3c4d5e6f",
		Amount:    "5.00",
	}
	for memo, ok := range map[string]bool{
		"":                        true,
		"Q&A <lab> bonus":         true,
		"Prüfung bestanden 🎉":     true,
		"line one\nline two":      false,
		"tab\tseparated":          false,
		"bell\x07":                false,
		"Bcc: dean@campus.test\r": false,
	} {
		req.Memo = memo
		err := binding.Validator.ValidateStruct(req)
		if ok {
			assert.NoError(t, err, "memo %q", memo)
		} else {
			assert.Error(t, err, "memo %q", memo)
		}
	}
}

func TestBinding_ValidateCouponRequest(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(ValidateCouponRequest{Code: "K7Q2ZP4M"}))
	assert.Error(t, binding.Validator.ValidateStruct(ValidateCouponRequest{Code: ""}))
	assert.Error(t, binding.Validator.ValidateStruct(ValidateCouponRequest{Code: "K7Q2 ZP4M"}))
}
