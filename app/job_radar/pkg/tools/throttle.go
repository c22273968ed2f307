package tools

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle 工具调用节流：两次调用之间至少间隔 interval，首次调用不等待
type Throttle struct {
	lim *rate.Limiter
}

// NewThrottle interval <= 0 时不限流
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait 阻塞直到允许下一次调用
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.lim.Wait(ctx)
}

// Millis 把毫秒配置转换为 time.Duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
