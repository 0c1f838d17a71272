package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campus-coin-ledger/internal/adapter/http/dto"
	"campus-coin-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// transferRouter binds the transfer payload behind MaxBodySize and reports
// whether the reader was cut off.
func transferRouter(limit int64) *gin.Engine {
	r := gin.New()
	r.Use(MaxBodySize(limit))
	r.POST("/api/v1/transfers", func(c *gin.Context) {
		var req dto.TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.String(http.StatusRequestEntityTooLarge, "cut off")
				return
			}
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusOK, req.Memo)
	})
	return r
}

func transferBody(t *testing.T, memo string) []byte {
	t.Helper()
	b, err := json.Marshal(dto.TransferRequest{StudentID: uuid.NewString(), Amount: "12.50", Memo: memo})
	require.NoError(t, err)
	return b
}

func TestMaxBodySize_TransferWithinLimit(t *testing.T) {
	memo := strings.Repeat("m", 255)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader(transferBody(t, memo)))
	req.Header.Set("Content-Type", "application/json")
	transferRouter(MaxRequestBody).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, memo, w.Body.String())
}

func TestMaxBodySize_DeclaredLengthRejected(t *testing.T) {
	body := transferBody(t, strings.Repeat("m", 4096))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	transferRouter(1024).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodePayloadTooLarge, resp["error_code"])
}

func TestMaxBodySize_ChunkedBodyCutOffAtBind(t *testing.T) {
	body := transferBody(t, strings.Repeat("m", 4096))
	w := httptest.NewRecorder()
	// io.MultiReader hides the length, as with a chunked upload.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", io.MultiReader(bytes.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	require.EqualValues(t, -1, req.ContentLength)
	transferRouter(1024).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "cut off", w.Body.String())
}

func TestMaxBodySize_NilBody(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(16))
	r.GET("/api/v1/accounts/me/balance", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me/balance", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
