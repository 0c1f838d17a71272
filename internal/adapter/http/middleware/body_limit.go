package middleware

import (
	"net/http"

	"campus-coin-ledger/pkg/apperror"
	"campus-coin-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxRequestBody caps transfer, redeem and coupon payloads. The largest
// legitimate body is a transfer with a full memo, well under this.
const MaxRequestBody int64 = 1 << 20

// MaxBodySize rejects requests whose declared Content-Length exceeds
// maxBytes with REQ_002 and caps the body reader for the rest, so a
// chunked body fails at bind time instead.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrPayloadTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
