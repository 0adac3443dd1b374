package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJanitor_RunsCleanup(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = 10 * time.Millisecond
	reg := NewRegistry(cfg, nil, nil)
	reg.GetOrCreate(context.Background(), "s1", "", "")

	j := NewJanitor(reg, 5*time.Millisecond)
	j.Start()
	j.Start()
	defer j.Stop()

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestJanitor_StopIsSafe(t *testing.T) {
	j := NewJanitor(NewRegistry(testConfig(), nil, nil), time.Hour)
	j.Stop()
	j.Start()
	j.Stop()
	j.Stop()
}
