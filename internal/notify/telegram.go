/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/seatunnel/watchdog/internal/config"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	// maxResponseBytes bounds how much of a response body is read
	// maxResponseBytes 限制读取的响应体大小
	maxResponseBytes = 4096

	// defaultTimeout applies when no positive timeout is configured
	defaultTimeout = 10 * time.Second
)

// apiResponse is the subset of the Bot API reply used for diagnostics
// apiResponse 是用于诊断的 Bot API 响应子集
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// TelegramNotifier posts alerts to <endpoint>/bot<token>/sendMessage.
// TelegramNotifier 向 <endpoint>/bot<token>/sendMessage 发送告警。
type TelegramNotifier struct {
	client    *http.Client
	endpoint  string
	token     string
	chatID    string
	parseMode string
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    *zap.Logger
	onResult  func(err error)
}

// NewTelegramNotifier creates a notifier from configuration
// NewTelegramNotifier 根据配置创建通知器
func NewTelegramNotifier(cfg config.NotifyConfig, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	n := &TelegramNotifier{
		client:    &http.Client{Timeout: timeout},
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		token:     cfg.Token,
		chatID:    cfg.ChatID,
		parseMode: cfg.ParseMode,
		logger:    logger.Named("notify"),
	}

	threshold := uint32(cfg.BreakerThreshold)
	if cfg.BreakerThreshold <= 0 {
		threshold = 1
	}
	n.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "telegram-notifier",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			n.logger.Warn("notify endpoint health changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return n
}

// SetResultHook registers a callback invoked with the outcome of every alert
// SetResultHook 注册每次告警结果的回调
func (n *TelegramNotifier) SetResultHook(hook func(err error)) {
	n.onResult = hook
}

// SendAlert delivers text and swallows any failure. The outcome is only logged.
// SendAlert 发送告警并吞掉所有失败，结果仅记录日志。
func (n *TelegramNotifier) SendAlert(ctx context.Context, text string) {
	err := n.Send(ctx, text)
	if n.onResult != nil {
		n.onResult(err)
	}
	if err != nil {
		n.logger.Warn("alert delivery failed", zap.Error(err),
			zap.String("endpoint_state", n.breaker.State().String()))
		return
	}
	n.logger.Debug("alert delivered")
}

// Send posts text exactly once and reports the outcome. The breaker only tracks
// endpoint health; an open breaker never skips the post.
// Send 只发送一次并返回结果，熔断器仅跟踪端点健康状况，打开时也不会跳过发送。
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Execute refused before posting / Execute 未执行发送
		return n.post(ctx, text)
	}
	return err
}

// BreakerState reports endpoint health: open after breaker_threshold consecutive failures
// BreakerState 报告端点健康状况：连续失败 breaker_threshold 次后为 open
func (n *TelegramNotifier) BreakerState() gobreaker.State {
	return n.breaker.State()
}

func (n *TelegramNotifier) post(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	if n.parseMode != "" {
		form.Set("parse_mode", n.parseMode)
	}

	target := fmt.Sprintf("%s/bot%s/sendMessage", n.endpoint, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", redact(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
		}
		// A 2xx without a parseable body counts as delivered
		return nil
	}
	if !apiResp.OK {
		return fmt.Errorf("%w: %d %s", ErrRejected, apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// redact strips the request URL, which embeds the bot token, from transport errors
// redact 去掉传输错误中包含 token 的请求 URL
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// ensure interface compliance / 确保接口实现
var _ Notifier = (*TelegramNotifier)(nil)

// New returns the notifier selected by cfg.Enabled
// New 根据 cfg.Enabled 返回相应的通知器
func New(cfg config.NotifyConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return NopNotifier{}
	}
	return NewTelegramNotifier(cfg, logger)
}
