package synthesis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	synthesisModel "ambience/internal/model/synthesis"
)

func TestTTSSynthesizer(t *testing.T) {
	Convey("TTSSynthesizer 合成对白", t, func() {
		repo := &fakeAudioFiles{}
		speech := &fakeSpeech{}
		dir := t.TempDir()
		s := NewTTSSynthesizer(speech, repo, fakeProbe{}, dir)
		ctx := context.Background()

		data := SynthesisData{Paragraphs: []Paragraph{
			{Text: "第一段", Speaker: "小明", VoiceType: "v1"},
			{Text: "   "},
			{Text: "第三段"},
			{Text: "第四段"},
		}}

		Convey("并发合成后按段落序号读取", func() {
			err := s.Synthesize(ctx, "p1", data, 3)
			So(err, ShouldBeNil)
			So(len(speech.texts), ShouldEqual, 3)

			files, _ := repo.FindSegmentsByProjectID(ctx, "p1")
			So(len(files), ShouldEqual, 3)
			So(files[0].ParagraphIndex, ShouldEqual, 0)
			So(files[0].Speaker, ShouldEqual, "小明")
			So(files[0].VoiceType, ShouldEqual, "v1")
			So(files[1].ParagraphIndex, ShouldEqual, 2)
			So(files[1].Speaker, ShouldEqual, "旁白")
			So(files[2].TextContent, ShouldEqual, "第四段")
			So(files[0].FilePath, ShouldEqual, filepath.Join(dir, "p1", "segments", "segment_0000.wav"))
			So(files[0].AudioType, ShouldEqual, synthesisModel.AudioTypeSegment)

			content, err := os.ReadFile(files[1].FilePath)
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, "RIFF第三段")
		})

		Convey("重新合成时旧片段失效", func() {
			So(s.Synthesize(ctx, "p1", data, 2), ShouldBeNil)
			So(s.Synthesize(ctx, "p1", data, 2), ShouldBeNil)

			files, _ := repo.FindSegmentsByProjectID(ctx, "p1")
			So(len(files), ShouldEqual, 3)
			So(len(repo.files), ShouldEqual, 6)
		})

		Convey("任一段失败则整体失败", func() {
			speech.failText = "第三段"
			err := s.Synthesize(ctx, "p1", data, 1)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "paragraph 2")
		})

		Convey("空计划", func() {
			err := s.Synthesize(ctx, "p1", SynthesisData{}, 1)
			So(errors.Is(err, ErrNoDialogue), ShouldBeTrue)
		})
	})
}
