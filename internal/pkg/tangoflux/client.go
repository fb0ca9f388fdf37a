package tangoflux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// 默认参数
const (
	DefaultBaseURL           = "http://localhost:7930"
	DefaultTimeout           = 300 * time.Second
	DefaultHealthTimeout     = 10 * time.Second
	DefaultNumInferenceSteps = 100
	DefaultGuidanceScale     = 4.5

	generatePath = "/api/v1/audio/generate"
	healthPath   = "/health"
)

// ErrEmptyAudio 服务返回 200 但没有音频数据
var ErrEmptyAudio = errors.New("tangoflux returned empty audio")

// Config TangoFlux 客户端配置
type Config struct {
	BaseURL           string        // 服务地址，默认: http://localhost:7930
	Timeout           time.Duration // 单次生成超时，默认: 300s
	HealthTimeout     time.Duration // 健康检查超时，默认: 10s
	NumInferenceSteps int           // 推理步数，默认: 100
}

// Client TangoFlux 环境音生成服务客户端
type Client struct {
	baseURL       string
	steps         int
	httpClient    *http.Client
	healthTimeout time.Duration
}

// NewClient 创建客户端
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	healthTimeout := config.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = DefaultHealthTimeout
	}

	steps := config.NumInferenceSteps
	if steps <= 0 {
		steps = DefaultNumInferenceSteps
	}

	return &Client{
		baseURL:       baseURL,
		steps:         steps,
		healthTimeout: healthTimeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL 服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Prompt        string
	Duration      float64 // 秒
	GuidanceScale float64 // 0 时使用默认值 4.5
}

type generatePayload struct {
	Prompt                string  `json:"prompt"`
	NumInferenceSteps     int     `json:"num_inference_steps"`
	GuidanceScale         float64 `json:"guidance_scale"`
	AudioLengthInS        float64 `json:"audio_length_in_s"`
	NumWaveformsPerPrompt int     `json:"num_waveforms_per_prompt"`
}

// StatusError 服务返回非 200
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tangoflux API error: status %d: %s", e.StatusCode, e.Body)
}

// Health 检查服务健康状态，非 200 返回错误
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Generate 生成环境音，返回音频二进制（WAV）
func (c *Client) Generate(ctx context.Context, r GenerateRequest) ([]byte, error) {
	guidance := r.GuidanceScale
	if guidance <= 0 {
		guidance = DefaultGuidanceScale
	}

	body, err := json.Marshal(generatePayload{
		Prompt:                r.Prompt,
		NumInferenceSteps:     c.steps,
		GuidanceScale:         guidance,
		AudioLengthInS:        r.Duration,
		NumWaveformsPerPrompt: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("prompt", r.Prompt).
		Float64("duration", r.Duration).
		Float64("guidance_scale", guidance).
		Msg("sending TangoFlux request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
