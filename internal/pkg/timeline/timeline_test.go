package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeProbe map[string]float64

func (p fakeProbe) Duration(_ context.Context, path string) (float64, error) {
	if d, ok := p[path]; ok {
		return d, nil
	}
	return 0, errors.New("not found")
}

func sampleFiles() []AudioFile {
	return []AudioFile{
		{FilePath: "a.wav", TextContent: "他走进房间"},
		{FilePath: "b.wav", TextContent: "他们来到森林", Speaker: "小明"},
		{FilePath: "c.wav", TextContent: "森林深处很安静"},
	}
}

func sampleProbe() fakeProbe {
	return fakeProbe{"a.wav": 5, "b.wav": 3, "c.wav": 7}
}

func TestGenerator_GenerateTimeline(t *testing.T) {
	Convey("GenerateTimeline 生成时间轴", t, func() {
		gen := NewGenerator(sampleProbe(), nil, nil)
		tl := gen.GenerateTimeline(context.Background(), sampleFiles())

		Convey("段落首尾相接，总时长为各段之和", func() {
			So(tl.TotalDuration, ShouldAlmostEqual, 15.0)
			So(len(tl.DialogueSegments), ShouldEqual, 3)
			So(tl.DialogueSegments[0].StartTime, ShouldEqual, 0)
			for i := 1; i < len(tl.DialogueSegments); i++ {
				So(tl.DialogueSegments[i].StartTime, ShouldEqual, tl.DialogueSegments[i-1].EndTime)
			}
			So(tl.EstimatedSegments, ShouldEqual, 0)
			So(tl.DialogueSegments[0].DurationSource, ShouldEqual, DurationMeasured)
		})

		Convey("缺省说话人为旁白", func() {
			So(tl.DialogueSegments[0].Speaker, ShouldEqual, "旁白")
			So(tl.DialogueSegments[1].Speaker, ShouldEqual, "小明")
		})

		Convey("场景切换发生在 0 秒和 5 秒", func() {
			So(len(tl.SceneChanges), ShouldEqual, 2)
			So(tl.SceneChanges[0].Time, ShouldEqual, 0)
			So(tl.SceneChanges[0].FromScene, ShouldBeNil)
			So(tl.SceneChanges[0].ToScene.Location, ShouldEqual, "indoor")
			So(tl.SceneChanges[1].Time, ShouldEqual, 5)
			So(tl.SceneChanges[1].SegmentIndex, ShouldEqual, 1)
			So(tl.SceneChanges[1].FromScene.Location, ShouldEqual, "indoor")
			So(tl.SceneChanges[1].ToScene.Location, ShouldEqual, "forest")
		})

		Convey("环境音轨道为 [0,5) 与 [5,15)", func() {
			So(len(tl.EnvironmentTracks), ShouldEqual, 2)
			first, second := tl.EnvironmentTracks[0], tl.EnvironmentTracks[1]
			So(first.StartTime, ShouldEqual, 0)
			So(first.EndTime, ShouldEqual, 5)
			So(second.StartTime, ShouldEqual, 5)
			So(second.EndTime, ShouldEqual, 15)
			So(second.Duration, ShouldEqual, 10)
			So(first.ScenePrompt, ShouldEqual, "indoor clear calm")
			So(second.ScenePrompt, ShouldEqual, "forest clear calm")
			So(first.VolumeLevel, ShouldEqual, 0.25)
			So(first.FadeIn, ShouldEqual, 0.5)
			So(first.FadeOut, ShouldEqual, 0.5)
			So(first.Priority, ShouldEqual, 1)
			So(first.Intensity, ShouldEqual, "low")
			So(first.TangoPrompt, ShouldNotBeEmpty)
		})

		Convey("校验通过但轨道仍为占位", func() {
			res := Validate(tl)
			So(res.IsValid, ShouldBeTrue)
			So(res.Complete, ShouldBeFalse)
			So(res.Statistics.PlaceholderTracks, ShouldEqual, 2)
		})
	})
}

func TestGenerator_EmptyInput(t *testing.T) {
	Convey("空输入得到空时间轴", t, func() {
		gen := NewGenerator(sampleProbe(), nil, nil)
		tl := gen.GenerateTimeline(context.Background(), nil)

		So(tl.TotalDuration, ShouldEqual, 0)
		So(tl.DialogueSegments, ShouldBeEmpty)
		So(tl.EnvironmentTracks, ShouldBeEmpty)
		So(tl.SceneChanges, ShouldBeEmpty)

		data, err := json.Marshal(tl)
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, `"environment_tracks":[]`)
	})
}

func TestGenerator_SameScene(t *testing.T) {
	Convey("所有段落文本相同只产生一次切换和一条轨道", t, func() {
		gen := NewGenerator(fakeProbe{"a": 2, "b": 2, "c": 2}, nil, nil)
		files := []AudioFile{
			{FilePath: "a", TextContent: "雨夜的街道"},
			{FilePath: "b", TextContent: "雨夜的街道"},
			{FilePath: "c", TextContent: "雨夜的街道"},
		}
		tl := gen.GenerateTimeline(context.Background(), files)

		So(len(tl.SceneChanges), ShouldEqual, 1)
		So(len(tl.EnvironmentTracks), ShouldEqual, 1)
		So(tl.EnvironmentTracks[0].StartTime, ShouldEqual, 0)
		So(tl.EnvironmentTracks[0].EndTime, ShouldEqual, 6)
		So(tl.EnvironmentTracks[0].ScenePrompt, ShouldEqual, "street rainy calm")
	})
}

func TestGenerator_EstimatedDuration(t *testing.T) {
	Convey("无法探测时长时按文本估算", t, func() {
		gen := NewGenerator(fakeProbe{}, nil, nil)
		files := []AudioFile{
			{FilePath: "missing.wav", TextContent: "一二三四五六七八九"},
			{FilePath: "", TextContent: ""},
		}
		tl := gen.GenerateTimeline(context.Background(), files)

		So(tl.DialogueSegments[0].Duration, ShouldAlmostEqual, 2.0)
		So(tl.DialogueSegments[0].DurationSource, ShouldEqual, DurationEstimated)
		So(tl.DialogueSegments[1].Duration, ShouldEqual, 1.0)
		So(tl.EstimatedSegments, ShouldEqual, 2)
		So(tl.TotalDuration, ShouldAlmostEqual, 3.0)

		res := Validate(tl)
		So(res.IsValid, ShouldBeTrue)
		So(res.Statistics.EstimatedSegments, ShouldEqual, 2)
	})
}

func TestEstimateDurationFromText(t *testing.T) {
	Convey("EstimateDurationFromText 限制在 [1, 30] 秒", t, func() {
		So(EstimateDurationFromText(""), ShouldEqual, 1.0)
		So(EstimateDurationFromText("  你好  "), ShouldEqual, 1.0)
		long := make([]rune, 500)
		for i := range long {
			long[i] = '字'
		}
		So(EstimateDurationFromText(string(long)), ShouldEqual, 30.0)
	})
}

func TestGenerateEnvironmentTracks_NoChanges(t *testing.T) {
	Convey("没有切换点但有段落时生成一条默认轨道", t, func() {
		gen := NewGenerator(nil, nil, nil)
		segments := []DialogueSegment{{Index: 0, StartTime: 0, EndTime: 4, Duration: 4}}
		tracks := gen.GenerateEnvironmentTracks(segments, nil)
		So(len(tracks), ShouldEqual, 1)
		So(tracks[0].EndTime, ShouldEqual, 4)
		So(tracks[0].VolumeLevel, ShouldEqual, 0.25)
		So(tracks[0].ScenePrompt, ShouldEqual, "indoor clear calm")
	})
}

func TestExport(t *testing.T) {
	Convey("Export 导出剪辑格式", t, func() {
		gen := NewGenerator(sampleProbe(), nil, nil)
		tl := gen.GenerateTimeline(context.Background(), sampleFiles())
		tl.EnvironmentTracks[0].AudioFilePath = "env_001.wav"

		Convey("通用格式", func() {
			out, err := Export(tl, "demo", FormatGeneric)
			So(err, ShouldBeNil)
			g := out.(GenericExport)
			So(g.Timeline.Version, ShouldEqual, "2.0")
			So(g.Timeline.FrameRate, ShouldEqual, 30)
			So(g.Timeline.SampleRate, ShouldEqual, 44100)
			So(len(g.Timeline.Tracks), ShouldEqual, 2)
			So(g.Timeline.Tracks[0].TrackID, ShouldEqual, "env_track_001")
			So(g.Timeline.Tracks[0].IsPlaceholder, ShouldBeFalse)
			So(g.Timeline.Tracks[1].IsPlaceholder, ShouldBeTrue)
		})

		Convey("Premiere 音量为百分比", func() {
			out, err := Export(tl, "demo", FormatPremierePro)
			So(err, ShouldBeNil)
			p := out.(PremiereExport)
			clip := p.Sequences[0].AudioTracks[1].Clips[0]
			So(clip.Volume, ShouldAlmostEqual, 25.0)
			So(clip.TimelineIn, ShouldEqual, 5)
			So(clip.TimelineOut, ShouldEqual, 15)
		})

		Convey("Resolve 以帧为单位", func() {
			out, err := Export(tl, "demo", FormatDaVinciResolve)
			So(err, ShouldBeNil)
			r := out.(ResolveExport)
			So(r.Timeline.DurationFrames, ShouldEqual, 450)
			clip := r.Timeline.AudioTracks[1].Clips[0]
			So(clip.StartFrame, ShouldEqual, 150)
			So(clip.EndFrame, ShouldEqual, 450)
			So(clip.FadeInFrames, ShouldEqual, 15)
			So(clip.VolumeDB, ShouldAlmostEqual, -15.0)
		})

		Convey("未知格式报错", func() {
			_, err := Export(tl, "demo", ExportFormat("fcpx"))
			So(err, ShouldNotBeNil)
			_, err = ParseExportFormat("fcpx")
			So(err, ShouldNotBeNil)
			f, err := ParseExportFormat("")
			So(err, ShouldBeNil)
			So(f, ShouldEqual, FormatGeneric)
		})

		Convey("写出 JSON 文件", func() {
			out, _ := Export(tl, "demo", FormatGeneric)
			path := filepath.Join(t.TempDir(), "nested", "timeline.json")
			So(WriteJSON(path, out), ShouldBeNil)
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"project_name": "demo"`)
		})
	})
}

func TestValidate_Errors(t *testing.T) {
	Convey("Validate 检测结构错误", t, func() {
		tl := &Timeline{
			TotalDuration: 10,
			DialogueSegments: []DialogueSegment{
				{Index: 0, StartTime: 0, EndTime: 4, Duration: 4},
				{Index: 1, StartTime: 5, EndTime: 10, Duration: 5},
			},
			EnvironmentTracks: []EnvironmentTrack{
				{StartTime: 0, EndTime: 6, AudioFilePath: "a.wav"},
				{StartTime: 5, EndTime: 12, AudioFilePath: "b.wav"},
			},
		}
		res := Validate(tl)
		So(res.IsValid, ShouldBeFalse)
		So(len(res.Errors), ShouldEqual, 2)
		So(res.Warnings, ShouldNotBeEmpty)
		So(res.Statistics.CompletedTracks, ShouldEqual, 2)
	})
}
