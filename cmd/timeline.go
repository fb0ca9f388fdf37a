package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ambience/internal/config"
	"ambience/internal/pkg/audio"
	"ambience/internal/pkg/ffmpeg"
	"ambience/internal/pkg/scenetools"
	"ambience/internal/pkg/timeline"
)

// TimelineManifest timeline 命令输入
type TimelineManifest struct {
	ProjectName string               `json:"project_name"`
	AudioFiles  []timeline.AudioFile `json:"audio_files"`
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Generate an environment sound timeline from dialogue audio",
	Long: `Read a manifest of dialogue audio files, analyze each line for scene
changes and write the resulting timeline. With --format the output is
converted to a video editor import structure.`,
	RunE: runTimeline,
}

var (
	timelineInput  string
	timelineFormat string
	timelineOutput string
)

func init() {
	rootCmd.AddCommand(timelineCmd)

	flags := timelineCmd.Flags()
	flags.StringVarP(&timelineInput, "input", "i", "", "manifest JSON file")
	flags.StringVarP(&timelineFormat, "format", "f", "", "export format (generic/premiere_pro/davinci_resolve), empty writes the raw timeline")
	flags.StringVarP(&timelineOutput, "output", "o", "timeline.json", "output file")
	_ = timelineCmd.MarkFlagRequired("input")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	format, err := timeline.ParseExportFormat(timelineFormat)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(timelineInput)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var manifest TimelineManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	analyzer, prompts, err := newSceneTools(GetConfig())
	if err != nil {
		return err
	}
	gen := timeline.NewGenerator(audio.NewFileProbe(ffmpeg.NewClient()), analyzer, prompts)
	tl := gen.GenerateTimeline(cmd.Context(), manifest.AudioFiles)

	result := timeline.Validate(tl)
	for _, w := range result.Warnings {
		log.Warn().Msg(w)
	}
	for _, e := range result.Errors {
		log.Error().Msg(e)
	}

	var out any = tl
	if timelineFormat != "" {
		name := manifest.ProjectName
		if name == "" {
			name = "ambience"
		}
		if out, err = timeline.Export(tl, name, format); err != nil {
			return err
		}
	}
	if err := timeline.WriteJSON(timelineOutput, out); err != nil {
		return err
	}

	log.Info().
		Str("output", timelineOutput).
		Float64("total_duration", tl.TotalDuration).
		Int("tracks", len(tl.EnvironmentTracks)).
		Int("estimated_segments", tl.EstimatedSegments).
		Bool("valid", result.IsValid).
		Msg("timeline generated")
	return nil
}

// newSceneTools 按配置创建场景分析器与提示词构建器
func newSceneTools(cfg *config.Config) (*scenetools.SceneAnalyzer, *scenetools.PromptBuilder, error) {
	lexicon, err := scenetools.LoadLexicon(cfg.Scene.LexiconFile)
	if err != nil {
		return nil, nil, err
	}
	var elements *scenetools.ElementDetector
	if cfg.Scene.DynamicElements {
		elements = scenetools.NewElementDetector()
	}
	return scenetools.NewSceneAnalyzer(lexicon), scenetools.NewPromptBuilder(lexicon, elements), nil
}
