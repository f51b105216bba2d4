package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// snapshot is a stored copy of a successful response.
type snapshot struct {
	status int
	header http.Header
	body   []byte
}

// teeWriter copies everything written to the client into buf.
type teeWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// Cache serves repeated GET requests for the same URI from memory for ttl.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if v, ok := store.Get(key); ok {
			snap := v.(snapshot)
			for k, vals := range snap.header {
				c.Writer.Header()[k] = vals
			}
			c.Writer.WriteHeader(snap.status)
			_, _ = c.Writer.Write(snap.body)
			c.Abort()
			return
		}

		tee := &teeWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = tee
		c.Next()

		if success(tee.Status()) {
			store.Set(key, snapshot{
				status: tee.Status(),
				header: tee.Header().Clone(),
				body:   tee.buf.Bytes(),
			}, ttl)
		}
	}
}

// Evict flushes the cache after a successful write.
func Evict(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if success(c.Writer.Status()) {
			store.Flush()
		}
	}
}
