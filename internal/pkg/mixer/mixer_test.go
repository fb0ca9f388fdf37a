package mixer

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ambience/internal/config"
	"ambience/internal/pkg/audio"
	"ambience/internal/pkg/timeline"
)

const testRate = 1000

type fakeLoader struct {
	files    map[string]*audio.Segment
	exported map[string]*audio.Segment
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{files: map[string]*audio.Segment{}, exported: map[string]*audio.Segment{}}
}

func (l *fakeLoader) Load(_ context.Context, path string) (*audio.Segment, error) {
	seg, ok := l.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return seg.Clone(), nil
}

func (l *fakeLoader) Export(_ context.Context, seg *audio.Segment, path, _ string) error {
	l.exported[path] = seg
	return nil
}

func constant(seconds, value float64) *audio.Segment {
	seg := audio.Silent(seconds, testRate, 1)
	for i := range seg.Samples {
		seg.Samples[i] = value
	}
	return seg
}

func newTestMixer(loader Loader, loop bool) *Mixer {
	return New(loader, Options{SampleRate: testRate, Channels: 1, Limiter: audio.LimiterSoft, LoopShortClips: loop})
}

func sampleAt(seg *audio.Segment, seconds float64) float64 {
	return seg.Samples[int(seconds*testRate)]
}

func TestMixer_Mix(t *testing.T) {
	Convey("环境音只出现在轨道区间内", t, func() {
		loader := newFakeLoader()
		loader.files["dialogue.wav"] = audio.Silent(10, testRate, 1)
		loader.files["env.wav"] = constant(10, 0.5)

		m := newTestMixer(loader, false)
		out, err := m.Mix(context.Background(), []string{"dialogue.wav"},
			[]Placement{{FilePath: "env.wav", StartTime: 2, EndTime: 8, Volume: 0.3}}, 0.3)

		So(err, ShouldBeNil)
		So(out.Duration(), ShouldAlmostEqual, 10.0, 1e-9)

		nonZeroOutside := false
		for f := 0; f < out.Frames(); f++ {
			if (f < 2*testRate || f >= 8*testRate) && out.Samples[f] != 0 {
				nonZeroOutside = true
				break
			}
		}
		So(nonZeroOutside, ShouldBeFalse)
		So(sampleAt(out, 5), ShouldAlmostEqual, 0.15, 1e-6)
	})

	Convey("对白加载失败时补入 3 秒静音", t, func() {
		loader := newFakeLoader()
		loader.files["a.wav"] = constant(2, 0.1)

		m := newTestMixer(loader, false)
		out, err := m.Mix(context.Background(), []string{"a.wav", "missing.wav"}, nil, 0.3)

		So(err, ShouldBeNil)
		So(out.Duration(), ShouldAlmostEqual, 5.0, 1e-9)
		So(sampleAt(out, 1), ShouldEqual, 0.1)
		So(sampleAt(out, 4), ShouldEqual, 0)
	})

	Convey("环境音加载失败时跳过该轨道", t, func() {
		loader := newFakeLoader()
		loader.files["a.wav"] = audio.Silent(4, testRate, 1)

		m := newTestMixer(loader, false)
		out, err := m.Mix(context.Background(), []string{"a.wav"},
			[]Placement{{FilePath: "gone.wav", StartTime: 0, EndTime: 4, Volume: 1}}, 0.3)

		So(err, ShouldBeNil)
		So(out.Peak(), ShouldEqual, 0)
	})

	Convey("短于轨道的环境音", t, func() {
		loader := newFakeLoader()
		loader.files["d.wav"] = audio.Silent(10, testRate, 1)
		loader.files["short.wav"] = constant(1, 0.5)
		placements := []Placement{{FilePath: "short.wav", StartTime: 2, EndTime: 8, Volume: 1}}

		Convey("默认补静音", func() {
			out, err := newTestMixer(loader, false).Mix(context.Background(), []string{"d.wav"}, placements, 0.3)
			So(err, ShouldBeNil)
			So(sampleAt(out, 2.5), ShouldBeGreaterThan, 0)
			So(sampleAt(out, 5), ShouldEqual, 0)
		})

		Convey("开启循环后填满轨道", func() {
			out, err := newTestMixer(loader, true).Mix(context.Background(), []string{"d.wav"}, placements, 0.3)
			So(err, ShouldBeNil)
			So(sampleAt(out, 5), ShouldBeGreaterThan, 0)
			So(sampleAt(out, 7.5), ShouldBeGreaterThan, 0)
			So(sampleAt(out, 9), ShouldEqual, 0)
		})
	})

	Convey("环境音超出对白长度时被截断", t, func() {
		loader := newFakeLoader()
		loader.files["d.wav"] = audio.Silent(5, testRate, 1)
		loader.files["env.wav"] = constant(20, 0.2)

		out, err := newTestMixer(loader, false).Mix(context.Background(), []string{"d.wav"},
			[]Placement{{FilePath: "env.wav", StartTime: 3, EndTime: 20, Volume: 1}}, 0.3)
		So(err, ShouldBeNil)
		So(out.Duration(), ShouldAlmostEqual, 5.0, 1e-9)
	})

	Convey("软限幅保证不超过满幅，安静素材保持不变", t, func() {
		loader := newFakeLoader()
		loader.files["loud.wav"] = constant(3, 0.8)
		loader.files["env.wav"] = constant(3, 0.8)
		loader.files["quiet.wav"] = constant(3, 0.1)

		m := newTestMixer(loader, false)
		loud, err := m.Mix(context.Background(), []string{"loud.wav"},
			[]Placement{{FilePath: "env.wav", StartTime: 0, EndTime: 3, Volume: 1}}, 0.3)
		So(err, ShouldBeNil)
		So(loud.Peak(), ShouldBeLessThan, 1.0)

		quiet, err := m.Mix(context.Background(), []string{"quiet.wav"}, nil, 0.3)
		So(err, ShouldBeNil)
		for _, v := range quiet.Samples {
			if v != 0.1 {
				So(v, ShouldEqual, 0.1)
				break
			}
		}
	})

	Convey("没有对白时报错", t, func() {
		_, err := newTestMixer(newFakeLoader(), false).Mix(context.Background(), nil, nil, 0.3)
		So(err, ShouldNotBeNil)
	})
}

func TestMixer_MixToFile(t *testing.T) {
	Convey("MixToFile 导出混音结果", t, func() {
		loader := newFakeLoader()
		loader.files["d.wav"] = constant(2, 0.1)

		err := newTestMixer(loader, false).MixToFile(context.Background(), []string{"d.wav"}, nil, 0.3, "out/final.wav", "wav")
		So(err, ShouldBeNil)
		So(loader.exported, ShouldContainKey, "out/final.wav")
		So(loader.exported["out/final.wav"].Duration(), ShouldAlmostEqual, 2.0, 1e-9)
	})
}

func TestMasterGain(t *testing.T) {
	Convey("MasterGain 以 0.3 为原始电平", t, func() {
		So(MasterGain(0.3), ShouldEqual, 1.0)
		So(MasterGain(0.15), ShouldAlmostEqual, 0.5, 1e-9)
		So(MasterGain(0.6), ShouldAlmostEqual, 2.0, 1e-9)
		So(MasterGain(1.0), ShouldAlmostEqual, 1.0/0.3, 1e-9)
		So(MasterGain(-1), ShouldEqual, 0)
		So(math.IsNaN(MasterGain(0)), ShouldBeFalse)
	})
}

func TestMixer_EnvironmentVolume(t *testing.T) {
	Convey("环境音总音量越大，混音越响", t, func() {
		loader := newFakeLoader()
		loader.files["dialogue.wav"] = audio.Silent(10, testRate, 1)
		loader.files["env.wav"] = constant(10, 0.5)
		placements := []Placement{{FilePath: "env.wav", StartTime: 2, EndTime: 8, Volume: 0.3}}

		m := New(loader, Options{SampleRate: testRate, Channels: 1, Limiter: audio.LimiterNone})
		levels := make([]float64, 0, 4)
		for _, v := range []float64{0.15, 0.3, 0.6, 1.0} {
			out, err := m.Mix(context.Background(), []string{"dialogue.wav"}, placements, v)
			So(err, ShouldBeNil)
			levels = append(levels, out.RMS())
		}

		So(levels[0], ShouldBeLessThan, levels[1])
		So(levels[1], ShouldBeLessThan, levels[2])
		So(levels[2], ShouldBeLessThan, levels[3])
	})

	Convey("放大后软限幅保持在满幅以内", t, func() {
		loader := newFakeLoader()
		loader.files["dialogue.wav"] = constant(4, 0.6)
		loader.files["env.wav"] = constant(4, 0.8)

		out, err := newTestMixer(loader, false).Mix(context.Background(), []string{"dialogue.wav"},
			[]Placement{{FilePath: "env.wav", StartTime: 0, EndTime: 4, Volume: 1.0}}, 1.0)
		So(err, ShouldBeNil)
		So(out.Peak(), ShouldBeLessThan, 1.0)
	})
}

func TestOptionsFromConfig(t *testing.T) {
	Convey("未设置的配置项沿用默认值", t, func() {
		opts := OptionsFromConfig(config.MixerConfig{})
		So(opts, ShouldResemble, DefaultOptions())
	})

	Convey("配置项覆盖默认值", t, func() {
		opts := OptionsFromConfig(config.MixerConfig{SampleRate: 22050, Channels: 1, Limiter: "none", LoopShortClips: true})
		So(opts.SampleRate, ShouldEqual, 22050)
		So(opts.Channels, ShouldEqual, 1)
		So(opts.Limiter, ShouldEqual, audio.LimiterNone)
		So(opts.LoopShortClips, ShouldBeTrue)
	})
}

func TestPlacementsFromTracks(t *testing.T) {
	Convey("占位轨道不参与混音", t, func() {
		tracks := []timeline.EnvironmentTrack{
			{StartTime: 0, EndTime: 5, VolumeLevel: 0.3, AudioFilePath: "a.wav"},
			{StartTime: 5, EndTime: 9, VolumeLevel: 0.4},
		}
		ps := PlacementsFromTracks(tracks)
		So(len(ps), ShouldEqual, 1)
		So(ps[0].FilePath, ShouldEqual, "a.wav")
		So(ps[0].Volume, ShouldEqual, 0.3)
	})
}
