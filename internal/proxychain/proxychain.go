// Package proxychain 은 여러 공개 CORS 프록시를 순서대로 시도하는
// 복원력 있는 fetch 클라이언트를 제공한다.
package proxychain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/seungwoo/rankwatch/internal/model"
	"github.com/seungwoo/rankwatch/internal/security"
)

// Strategy 는 하나의 프록시 경유 방식을 정의한다.
// BuildURL 은 대상 URL을 프록시 요청 URL로 변환하고,
// ParseBody 는 프록시 응답 본문에서 실제 콘텐츠를 꺼낸다 (nil이면 본문 그대로).
type Strategy struct {
	Name      string
	BuildURL  func(targetURL string) string
	ParseBody func(raw []byte) (string, error)
}

// alloriginsEnvelope 는 allorigins.win의 JSON 봉투 형식.
type alloriginsEnvelope struct {
	Contents string `json:"contents"`
}

// DefaultStrategies 는 기본 프록시 체인을 순서대로 반환한다.
// 앞쪽 전략이 실패하면 다음 전략으로 넘어간다.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name: "corsproxy",
			BuildURL: func(targetURL string) string {
				return "https://corsproxy.io/?" + url.QueryEscape(targetURL)
			},
		},
		{
			Name: "allorigins",
			BuildURL: func(targetURL string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(targetURL)
			},
			ParseBody: func(raw []byte) (string, error) {
				var envelope alloriginsEnvelope
				if err := json.Unmarshal(raw, &envelope); err != nil {
					return "", fmt.Errorf("allorigins envelope parse failed: %w", err)
				}
				return envelope.Contents, nil
			},
		},
		{
			Name: "thingproxy",
			BuildURL: func(targetURL string) string {
				return "https://thingproxy.freeboard.io/fetch/" + targetURL
			},
		},
	}
}

// Metrics 는 프록시 시도 결과를 기록하는 인터페이스.
type Metrics interface {
	RecordProxyAttempt(strategy string)
	RecordProxySuccess(strategy string)
	RecordProxyFailure(strategy string)
}

// Config 는 체인의 동작 파라미터.
type Config struct {
	AttemptsPerStrategy int           // 전략당 시도 횟수
	RetryDelay          time.Duration // 같은 전략 내 재시도 간 대기
	AttemptTimeout      time.Duration // 시도 1회의 제한 시간
	MaxBodySize         int64         // 응답 본문 최대 바이트
}

// DefaultConfig 는 운영 기본값을 반환한다.
func DefaultConfig() Config {
	return Config{
		AttemptsPerStrategy: 2,
		RetryDelay:          time.Second,
		AttemptTimeout:      15 * time.Second,
		MaxBodySize:         5 * 1024 * 1024,
	}
}

// Client 는 프록시 체인을 순회하며 대상 URL의 텍스트를 가져온다.
type Client struct {
	httpClient *http.Client
	strategies []Strategy
	guard      security.SSRFGuardService
	cfg        Config
	metrics    Metrics
	logger     *slog.Logger
}

// NewClient 는 프록시 체인 클라이언트를 생성한다.
// httpClient 가 nil이면 guard.NewSafeClient 로 SSRF 방지 클라이언트를 만든다.
// metrics 는 nil이어도 된다.
func NewClient(httpClient *http.Client, strategies []Strategy, guard security.SSRFGuardService, cfg Config, metrics Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = guard.NewSafeClient(cfg.AttemptTimeout)
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Client{
		httpClient: httpClient,
		strategies: strategies,
		guard:      guard,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchText 는 모든 전략이 소진될 때까지 체인을 순회하며 대상 URL의 본문을 가져온다.
// 성공 조건은 2xx 응답이면서 파싱 후 본문이 비어있지 않은 것.
// 빈 본문은 같은 전략 내에서 재시도하고, 비 2xx는 즉시 다음 전략으로 넘어간다.
// 전부 실패하면 마지막 에러의 성격에 따라 타임아웃/네트워크/일반 에러로 분류해 반환한다.
func (c *Client) FetchText(ctx context.Context, targetURL string) (string, error) {
	if err := c.guard.ValidateURL(targetURL); err != nil {
		c.logger.Warn("안전하지 않은 URL 차단",
			slog.String("target_url", targetURL),
			slog.String("error", err.Error()),
		)
		return "", model.NewSSRFBlockedError()
	}

	var lastErr error

	for _, strategy := range c.strategies {
		for attempt := 1; attempt <= c.cfg.AttemptsPerStrategy; attempt++ {
			if c.metrics != nil {
				c.metrics.RecordProxyAttempt(strategy.Name)
			}

			body, err := c.fetchOnce(ctx, strategy, targetURL)
			if err == nil && body != "" {
				if c.metrics != nil {
					c.metrics.RecordProxySuccess(strategy.Name)
				}
				c.logger.Info("프록시 경유 fetch 성공",
					slog.String("strategy", strategy.Name),
					slog.Int("attempt", attempt),
					slog.Int("body_length", len(body)),
				)
				return body, nil
			}

			if err == nil {
				err = fmt.Errorf("%s: empty response body", strategy.Name)
			}
			lastErr = err
			if c.metrics != nil {
				c.metrics.RecordProxyFailure(strategy.Name)
			}
			c.logger.Warn("프록시 시도 실패",
				slog.String("strategy", strategy.Name),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)

			// 상위 컨텍스트가 끝났으면 더 시도할 이유가 없다.
			if ctx.Err() != nil {
				return "", classifyExhaustion(ctx.Err())
			}

			var statusErr *unexpectedStatusError
			if errors.As(err, &statusErr) {
				// 비 2xx 는 재시도해도 같은 결과일 가능성이 높으므로 다음 전략으로.
				break
			}

			if attempt < c.cfg.AttemptsPerStrategy {
				select {
				case <-time.After(c.cfg.RetryDelay):
				case <-ctx.Done():
					return "", classifyExhaustion(ctx.Err())
				}
			}
		}
	}

	c.logger.Error("모든 프록시 전략 소진",
		slog.String("target_url", targetURL),
		slog.String("last_error", errString(lastErr)),
	)
	return "", classifyExhaustion(lastErr)
}

// unexpectedStatusError 는 프록시가 비 2xx 상태를 반환한 경우의 에러.
type unexpectedStatusError struct {
	strategy   string
	statusCode int
}

func (e *unexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.strategy, e.statusCode)
}

// fetchOnce 는 단일 전략으로 1회 시도한다.
func (c *Client) fetchOnce(ctx context.Context, strategy Strategy, targetURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	proxyURL := strategy.BuildURL(targetURL)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", strategy.Name, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", strategy.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &unexpectedStatusError{strategy: strategy.Name, statusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", strategy.Name, err)
	}

	if strategy.ParseBody == nil {
		return string(raw), nil
	}
	return strategy.ParseBody(raw)
}

// classifyExhaustion 은 마지막 에러의 성격으로 사용자 메시지를 결정한다.
func classifyExhaustion(lastErr error) *model.APIError {
	if lastErr == nil {
		return model.NewFetchExhaustedError(nil)
	}
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return model.NewFetchTimeoutError()
	}
	var netErr net.Error
	if errors.As(lastErr, &netErr) {
		if netErr.Timeout() {
			return model.NewFetchTimeoutError()
		}
		return model.NewFetchNetworkError()
	}
	var urlErr *url.Error
	if errors.As(lastErr, &urlErr) {
		return model.NewFetchNetworkError()
	}
	return model.NewFetchExhaustedError(lastErr)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
