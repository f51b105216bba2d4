package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscription_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	code := ts.do(t, http.MethodPut, "/api/subscriptions", ts.driverToken, nil, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid request", body["error"])
}

func TestSubscriptions_ScopedToCaller(t *testing.T) {
	ts := newTestServer(t)
	endpoint := "https://push.example.com/send/abc"

	sub := gin.H{"endpoint": endpoint, "p256dh": "key", "auth": "secret"}
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPut, "/api/subscriptions", ts.driverToken, sub, nil))

	// The endpoint is matched exactly as sent, so query it unescaped.
	getPath := "/api/subscriptions?endpoint=" + endpoint
	var got map[string]any
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, getPath, ts.driverToken, nil, &got))
	assert.Equal(t, endpoint, got["endpoint"])

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, getPath, ts.otherToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/subscriptions", ts.otherToken, gin.H{"endpoint": endpoint}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/subscriptions", ts.driverToken, nil, nil))

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/subscriptions", ts.driverToken, gin.H{"endpoint": endpoint}, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, getPath, ts.driverToken, nil, nil))
}
