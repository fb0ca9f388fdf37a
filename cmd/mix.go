package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ambience/internal/pkg/audio"
	"ambience/internal/pkg/mixer"
	"ambience/internal/pkg/timeline"
)

// MixManifest mix 命令输入
// Timeline 非空时从时间轴读取对白与已生成的环境音轨道
type MixManifest struct {
	DialogueFiles     []string           `json:"dialogue_files"`
	Placements        []mixer.Placement  `json:"placements"`
	Timeline          *timeline.Timeline `json:"timeline,omitempty"`
	EnvironmentVolume *float64           `json:"environment_volume,omitempty"`
}

var mixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Mix dialogue and environment sounds into one file",
	RunE:  runMix,
}

var (
	mixInput  string
	mixOutput string
)

func init() {
	rootCmd.AddCommand(mixCmd)

	flags := mixCmd.Flags()
	flags.StringVarP(&mixInput, "input", "i", "", "mix manifest JSON file")
	flags.StringVarP(&mixOutput, "output", "o", "mixed.wav", "output file, format follows the extension")
	_ = mixCmd.MarkFlagRequired("input")
}

func runMix(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := cfg.Mixer.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(mixInput)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var manifest MixManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	dialogue := manifest.DialogueFiles
	placements := manifest.Placements
	if manifest.Timeline != nil {
		if len(dialogue) == 0 {
			for _, seg := range manifest.Timeline.DialogueSegments {
				dialogue = append(dialogue, seg.FilePath)
			}
		}
		placements = append(placements, mixer.PlacementsFromTracks(manifest.Timeline.EnvironmentTracks)...)
	}
	if len(dialogue) == 0 {
		return fmt.Errorf("no dialogue files in %s", mixInput)
	}

	volume := cfg.Synthesis.DefaultEnvironmentVolume
	if manifest.EnvironmentVolume != nil {
		volume = *manifest.EnvironmentVolume
	}

	format := strings.TrimPrefix(filepath.Ext(mixOutput), ".")
	if format == "" {
		format = cfg.Mixer.OutputFormat
	}

	m := mixer.New(audio.NewDefaultCodec(), mixer.OptionsFromConfig(cfg.Mixer))
	if err := m.MixToFile(cmd.Context(), dialogue, placements, volume, mixOutput, format); err != nil {
		return err
	}

	log.Info().
		Str("output", mixOutput).
		Int("dialogue_files", len(dialogue)).
		Int("environment_tracks", len(placements)).
		Float64("environment_volume", volume).
		Msg("mix completed")
	return nil
}
