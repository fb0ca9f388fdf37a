package synthesis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	synthesisModel "ambience/internal/model/synthesis"
	"ambience/internal/pkg/id"
	"ambience/internal/pkg/timeline"
	"ambience/internal/pkg/tts"
	synthesisRepo "ambience/internal/repository/synthesis"
)

// SpeechClient 语音合成客户端
type SpeechClient interface {
	Synthesize(ctx context.Context, r tts.Request) (*tts.Result, error)
	Encoding() string
}

// TTSSynthesizer 基于 TTS 服务的对白合成
type TTSSynthesizer struct {
	client    SpeechClient
	repo      synthesisRepo.AudioFileRepository
	probe     timeline.DurationProbe
	outputDir string
}

// NewTTSSynthesizer 创建对白合成器
// probe 用于在服务未返回时长时读取文件时长，可为空
func NewTTSSynthesizer(client SpeechClient, repo synthesisRepo.AudioFileRepository, probe timeline.DurationProbe, outputDir string) *TTSSynthesizer {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &TTSSynthesizer{client: client, repo: repo, probe: probe, outputDir: outputDir}
}

// Synthesize 并发合成所有段落，任一段失败则整体失败
// 之前的片段先置为 inactive，重复合成只保留最新一批
func (s *TTSSynthesizer) Synthesize(ctx context.Context, projectID string, data SynthesisData, parallelTasks int) error {
	if len(data.Paragraphs) == 0 {
		return ErrNoDialogue
	}
	if parallelTasks <= 0 {
		parallelTasks = DefaultParallelTasks
	}

	if err := s.repo.DeactivateByProjectID(ctx, projectID); err != nil {
		return fmt.Errorf("deactivate old segments: %w", err)
	}

	dir := filepath.Join(s.outputDir, projectID, "segments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create segment dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelTasks)

	for i, p := range data.Paragraphs {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			log.Warn().Str("project_id", projectID).Int("paragraph", i).Msg("段落文本为空，跳过")
			continue
		}
		g.Go(func() error {
			return s.synthesizeParagraph(gctx, projectID, dir, i, text, p)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Str("project_id", projectID).Int("paragraphs", len(data.Paragraphs)).Msg("对白合成完成")
	return nil
}

func (s *TTSSynthesizer) synthesizeParagraph(ctx context.Context, projectID, dir string, index int, text string, p Paragraph) error {
	res, err := s.client.Synthesize(ctx, tts.Request{
		Text:       text,
		VoiceType:  p.VoiceType,
		SpeedRatio: p.SpeedRatio,
	})
	if err != nil {
		return fmt.Errorf("paragraph %d: %w", index, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("segment_%04d.%s", index, s.client.Encoding()))
	if err := os.WriteFile(path, res.AudioData, 0o644); err != nil {
		return fmt.Errorf("paragraph %d: write audio: %w", index, err)
	}

	duration := res.Duration
	if duration <= 0 && s.probe != nil {
		if d, err := s.probe.Duration(ctx, path); err == nil {
			duration = d
		}
	}

	speaker := p.Speaker
	if speaker == "" {
		speaker = timeline.DefaultSpeaker
	}

	file := &synthesisModel.AudioFile{
		ID:             id.New(),
		ProjectID:      projectID,
		ParagraphIndex: index,
		AudioType:      synthesisModel.AudioTypeSegment,
		FilePath:       path,
		TextContent:    text,
		Speaker:        speaker,
		VoiceType:      p.VoiceType,
		Duration:       duration,
		FileSize:       int64(len(res.AudioData)),
		Status:         synthesisModel.AudioFileStatusActive,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		return fmt.Errorf("paragraph %d: save audio file: %w", index, err)
	}
	return nil
}
