// Package mw holds the gin middleware used by the API: response caching
// for the dashboard's read endpoints and per-client rate limiting.
package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

type storedResponse struct {
	status int
	header http.Header
	body   []byte
}

// captureWriter tees the response body so it can be replayed from cache.
type captureWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheResponses serves repeated GETs of the same URI from memory for the
// given TTL. The dashboard polls latest-reading endpoints aggressively;
// a short TTL takes that load off the database without making the data
// noticeably stale.
func CacheResponses(ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	responses := gocache.New(ttl, 2*ttl)

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if hit, ok := responses.Get(key); ok {
			stored := hit.(storedResponse)
			for k, v := range stored.header {
				c.Writer.Header()[k] = v
			}
			c.Writer.WriteHeader(stored.status)
			c.Writer.Write(stored.body)
			c.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		if status := writer.Status(); status >= 200 && status < 300 {
			responses.Set(key, storedResponse{
				status: status,
				header: writer.Header().Clone(),
				body:   writer.buf.Bytes(),
			}, ttl)
		}
	}
}
