package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"ambience/internal/pkg/id"
)

// 默认参数
const (
	DefaultAPIURL     = "https://openspeech.bytedance.com/api/v1/tts"
	DefaultCluster    = "volcano_tts"
	DefaultVoiceType  = "BV115_streaming"
	DefaultSampleRate = 44100
	DefaultEncoding   = "wav"

	successCode = 3000
)

// ErrNoAudio 响应中没有音频数据
var ErrNoAudio = errors.New("audio data not found in response")

// Config TTS 配置
type Config struct {
	APIURL      string  // API 地址
	AccessToken string  // 访问令牌（必需）
	AppID       string  // 应用ID（可选）
	Cluster     string  // 集群名称
	VoiceType   string  // 默认音色
	SampleRate  int     // 采样率
	Encoding    string  // 输出编码：wav, mp3
	SpeedRatio  float64 // 默认语速
	Timeout     time.Duration
}

// Client 火山引擎 TTS 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建 TTS 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("TTS access token is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Cluster == "" {
		cfg.Cluster = DefaultCluster
	}
	if cfg.VoiceType == "" {
		cfg.VoiceType = DefaultVoiceType
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Encoding == "" {
		cfg.Encoding = DefaultEncoding
	}
	if cfg.SpeedRatio <= 0 {
		cfg.SpeedRatio = 1.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Encoding 输出音频编码，同时用作文件扩展名
func (c *Client) Encoding() string {
	return c.cfg.Encoding
}

// Request 单段合成请求，空字段使用客户端默认值
type Request struct {
	Text       string
	VoiceType  string
	SpeedRatio float64
}

// Result 合成结果
type Result struct {
	AudioData []byte
	Duration  float64 // 服务端返回的时长（秒），未返回为 0
}

type appConfig struct {
	AppID   string `json:"appid,omitempty"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

type audioConfig struct {
	VoiceType   string  `json:"voice_type"`
	Encoding    string  `json:"encoding"`
	Rate        int     `json:"rate"`
	SpeedRatio  float64 `json:"speed_ratio"`
	VolumeRatio float64 `json:"volume_ratio"`
	PitchRatio  float64 `json:"pitch_ratio"`
	Language    string  `json:"language"`
}

type requestConfig struct {
	ReqID     string `json:"reqid"`
	Text      string `json:"text"`
	TextType  string `json:"text_type"`
	Operation string `json:"operation"`
}

type apiRequest struct {
	App     appConfig         `json:"app"`
	User    map[string]string `json:"user"`
	Audio   audioConfig       `json:"audio"`
	Request requestConfig     `json:"request"`
}

type apiResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Data     string `json:"data"`
	Addition struct {
		Duration json.RawMessage `json:"duration"`
	} `json:"addition"`
}

// Synthesize 合成一段语音
func (c *Client) Synthesize(ctx context.Context, r Request) (*Result, error) {
	if r.Text == "" {
		return nil, fmt.Errorf("text is required")
	}

	requestID := id.New()
	body, err := json.Marshal(c.buildRequest(r, requestID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer; %s", c.cfg.AccessToken))
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("request_id", requestID).
		Int("text_len", len([]rune(r.Text))).
		Msg("sending TTS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Code != successCode {
		msg := apiResp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("TTS response error: %s (code: %d)", msg, apiResp.Code)
	}
	if apiResp.Data == "" {
		return nil, ErrNoAudio
	}

	audio, err := base64.StdEncoding.DecodeString(apiResp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	return &Result{
		AudioData: audio,
		Duration:  parseDurationMillis(apiResp.Addition.Duration),
	}, nil
}

func (c *Client) buildRequest(r Request, requestID string) apiRequest {
	voice := r.VoiceType
	if voice == "" {
		voice = c.cfg.VoiceType
	}
	speed := r.SpeedRatio
	if speed <= 0 {
		speed = c.cfg.SpeedRatio
	}

	return apiRequest{
		App: appConfig{
			AppID:   c.cfg.AppID,
			Token:   c.cfg.AccessToken,
			Cluster: c.cfg.Cluster,
		},
		User: map[string]string{"uid": requestID},
		Audio: audioConfig{
			VoiceType:   voice,
			Encoding:    c.cfg.Encoding,
			Rate:        c.cfg.SampleRate,
			SpeedRatio:  speed,
			VolumeRatio: 1.0,
			PitchRatio:  1.0,
			Language:    "cn",
		},
		Request: requestConfig{
			ReqID:     requestID,
			Text:      r.Text,
			TextType:  "plain",
			Operation: "query",
		},
	}
}

// parseDurationMillis addition.duration 可能是字符串或数字，单位毫秒
func parseDurationMillis(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n / 1000.0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v / 1000.0
		}
	}
	return 0
}
