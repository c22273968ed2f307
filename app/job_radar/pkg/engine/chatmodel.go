package engine

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

// retryModel 给 ChatModel 加上限流与 429 重试
type retryModel struct {
	inner      model.ToolCallingChatModel
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

var _ model.ToolCallingChatModel = (*retryModel)(nil)

func newRetryModel(inner model.ToolCallingChatModel, limiter *rate.Limiter) *retryModel {
	return &retryModel{
		inner:      inner,
		limiter:    limiter,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
}

// Generate 429 时指数退避重试，其余错误直接返回
func (m *retryModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var lastErr error
	for i := 0; i <= m.maxRetries; i++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := m.inner.Generate(ctx, input, opts...)
		if err == nil {
			return resp, nil
		}
		if !isRateLimited(err) {
			return nil, err
		}

		lastErr = err
		if i < m.maxRetries {
			delay := m.baseDelay * time.Duration(1<<i)
			logger.Log.Warnf("LLM 被限流，%v 后重试 (%d/%d)", delay, i+1, m.maxRetries)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// Stream 只做限流
func (m *retryModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return m.inner.Stream(ctx, input, opts...)
}

// WithTools 绑定工具后仍保留重试策略
func (m *retryModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	inner, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &retryModel{
		inner:      inner,
		limiter:    m.limiter,
		maxRetries: m.maxRetries,
		baseDelay:  m.baseDelay,
	}, nil
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
