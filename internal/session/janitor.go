package session

import (
	"context"
	"sync"
	"time"

	"ielts-tutor-go/pkg/log"
)

// Janitor 按固定间隔调用 Registry.Cleanup。
type Janitor struct {
	registry *Registry
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewJanitor 创建清理任务，interval 不大于 0 时使用 5 分钟。
func NewJanitor(registry *Registry, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{registry: registry, interval: interval}
}

// Start 在后台启动清理循环，重复调用无副作用。
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.running = true

	j.wg.Add(1)
	go j.loop(ctx)
}

// Stop 停止清理循环并等待其退出。
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.cancel()
	j.running = false
	j.mu.Unlock()
	j.wg.Wait()
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Infof("会话清理任务已启动，间隔 %s", j.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("会话清理任务已停止")
			return
		case <-ticker.C:
			j.registry.Cleanup()
		}
	}
}
