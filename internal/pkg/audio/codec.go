package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"ambience/internal/pkg/ffmpeg"
	"ambience/internal/pkg/id"
)

// ErrUnsupportedWAV 非整数 PCM 的 WAV 文件，需要交给 ffmpeg 处理
var ErrUnsupportedWAV = errors.New("unsupported wav encoding")

const wavFormatPCM = 1

// Transcoder 外部转码器（ffmpeg）
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, sampleRate, channels int) error
}

// Codec 音频文件读写
// WAV 原生解析；其他格式经由 Transcoder 转为临时 WAV
type Codec struct {
	transcoder Transcoder
	tmpDir     string
}

// NewCodec 创建编解码器，transcoder 为 nil 时只支持 WAV
func NewCodec(transcoder Transcoder) *Codec {
	return &Codec{transcoder: transcoder, tmpDir: os.TempDir()}
}

// NewDefaultCodec 使用本机 ffmpeg 的编解码器
func NewDefaultCodec() *Codec {
	return NewCodec(ffmpeg.NewClient())
}

// Load 读取音频文件
func (c *Codec) Load(ctx context.Context, path string) (*Segment, error) {
	if isWAV(path) {
		seg, err := ReadWAV(path)
		if err == nil || !errors.Is(err, ErrUnsupportedWAV) {
			return seg, err
		}
	}

	if c.transcoder == nil {
		return nil, fmt.Errorf("load %s: no transcoder for non-pcm audio", path)
	}

	tmp := filepath.Join(c.tmpDir, "ambience_decode_"+id.Short()+".wav")
	defer os.Remove(tmp)

	if err := c.transcoder.Transcode(ctx, path, tmp, 0, 0); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ReadWAV(tmp)
}

// Export 写出音频文件，格式由 format 决定（wav, mp3, flac, ogg）
func (c *Codec) Export(ctx context.Context, seg *Segment, path, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	format = strings.ToLower(format)
	if format == "" || format == "wav" {
		return WriteWAV(path, seg)
	}

	if c.transcoder == nil {
		return fmt.Errorf("export %s: no transcoder for format %s", path, format)
	}

	tmp := filepath.Join(c.tmpDir, "ambience_encode_"+id.Short()+".wav")
	defer os.Remove(tmp)

	if err := WriteWAV(tmp, seg); err != nil {
		return err
	}
	if err := c.transcoder.Transcode(ctx, tmp, path, seg.SampleRate, seg.Channels); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// ReadWAV 解析整数 PCM WAV 文件
func ReadWAV(path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: invalid wav file", path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%s: format %d: %w", path, dec.WavAudioFormat, ErrUnsupportedWAV)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: read pcm: %w", path, err)
	}

	bitDepth := int(dec.BitDepth)
	seg := &Segment{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Samples:    make([]float64, len(buf.Data)),
	}

	if bitDepth == 8 {
		// 8 位 WAV 为无符号采样
		for i, v := range buf.Data {
			seg.Samples[i] = float64(v-128) / 128
		}
		return seg, nil
	}

	scale := math.Pow(2, float64(bitDepth-1))
	for i, v := range buf.Data {
		seg.Samples[i] = float64(v) / scale
	}
	return seg, nil
}

// WriteWAV 以 16 位 PCM 写出 WAV 文件，超出满幅的采样被截断
func WriteWAV(path string, seg *Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, seg.SampleRate, 16, seg.Channels, wavFormatPCM)

	data := make([]int, len(seg.Samples))
	for i, v := range seg.Samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(math.Round(v * 32767))
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: seg.Channels,
			SampleRate:  seg.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

func isWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}
