package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"ambience/internal/pkg/ffmpeg"
)

// InfoProber 外部时长探测（ffprobe）
type InfoProber interface {
	GetAudioInfo(ctx context.Context, audioPath string) (*ffmpeg.AudioInfo, error)
}

// FileProbe 音频时长探测
// 先读 WAV 头，失败再交给 ffprobe
type FileProbe struct {
	prober InfoProber
}

// NewFileProbe 创建时长探测器，prober 为 nil 时只支持 WAV
func NewFileProbe(prober InfoProber) *FileProbe {
	return &FileProbe{prober: prober}
}

// Duration 返回音频时长（秒）
func (p *FileProbe) Duration(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, errors.New("empty audio path")
	}
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}

	if isWAV(path) {
		if d, err := wavDuration(path); err == nil {
			return d, nil
		}
	}

	if p.prober == nil {
		return 0, fmt.Errorf("probe %s: unsupported format", path)
	}

	info, err := p.prober.GetAudioInfo(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("probe %s: no duration", path)
	}
	return info.Duration, nil
}

func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s: invalid wav file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%s: locate pcm chunk: %w", path, err)
	}

	bytesPerSec := int(dec.SampleRate) * int(dec.NumChans) * int(dec.BitDepth) / 8
	if bytesPerSec == 0 {
		return 0, fmt.Errorf("%s: invalid wav format", path)
	}
	return float64(dec.PCMSize) / float64(bytesPerSec), nil
}
