package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotInstalled ffmpeg / ffprobe 不可用
var ErrNotInstalled = errors.New("ffmpeg not installed")

// Client FFmpeg 客户端
// 用于封装 FFmpeg 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration   float64 // 时长（秒）
	SampleRate int     // 采样率
	Channels   int     // 声道数
	Codec      string  // 编码
}

// Available 检查 ffmpeg 与 ffprobe 是否可执行
func (c *Client) Available() bool {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return false
	}
	if _, err := exec.LookPath(c.ffprobePath); err != nil {
		return false
	}
	return true
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetAudioInfo 获取音频信息
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	if _, err := exec.LookPath(c.ffprobePath); err != nil {
		return nil, ErrNotInstalled
	}

	// ffprobe -v error -select_streams a:0 -show_entries stream=... -show_entries format=duration -of json audio.wav
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type,codec_name,sample_rate,channels",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &AudioInfo{}
	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
		}
		info.Duration = d
	}
	if len(probe.Streams) > 0 {
		s := probe.Streams[0]
		info.Codec = s.CodecName
		info.Channels = s.Channels
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
	}

	return info, nil
}

// Transcode 转码音频
// sampleRate / channels 为 0 时保持原始参数，输出格式由扩展名决定
func (c *Client) Transcode(ctx context.Context, inputPath, outputPath string, sampleRate, channels int) error {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return ErrNotInstalled
	}

	args := []string{"-y", "-v", "error", "-i", inputPath}
	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}
	if channels > 0 {
		args = append(args, "-ac", strconv.Itoa(channels))
	}
	if strings.HasSuffix(strings.ToLower(outputPath), ".wav") {
		args = append(args, "-c:a", "pcm_s16le")
	}
	args = append(args, outputPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	log.Debug().
		Str("input", inputPath).
		Str("output", outputPath).
		Msg("音频转码成功")

	return nil
}
