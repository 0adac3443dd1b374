package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterFailures(t *testing.T) {
	mock := NewMockClient()
	for i := 0; i < 3; i++ {
		mock.AddResponse(MockResponse{Err: errors.New("boom")})
	}
	c := WithBreaker(mock, BreakerConfig{Name: "test", MinRequests: 3, FailureRatio: 0.5, OpenTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		_, err := c.Complete(context.Background(), "p")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.(*breakerClient).State())

	_, err := c.Complete(context.Background(), "p")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsServiceBusy(err))
	// 打开状态下不会再调用内部客户端
	assert.Equal(t, 3, mock.CallCount())
}

func TestBreaker_InvalidResponsesDoNotTrip(t *testing.T) {
	mock := NewMockClient()
	for i := 0; i < 5; i++ {
		mock.AddResponse(MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}})
	}
	c := WithBreaker(mock, BreakerConfig{Name: "test-invalid", MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Hour})

	for i := 0; i < 5; i++ {
		_, _ = c.Complete(context.Background(), "p")
	}
	assert.Equal(t, gobreaker.StateClosed, c.(*breakerClient).State())
	assert.Equal(t, 5, mock.CallCount())
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	c := WithBreaker(NewMockClient(MockResponse{Text: "hi"}), BreakerConfig{Name: "test-ok"})
	resp, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
}
