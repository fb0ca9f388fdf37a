package scenetools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSceneAnalyzer_Analyze(t *testing.T) {
	Convey("SceneAnalyzer.Analyze 基于关键词分析场景", t, func() {
		analyzer := NewSceneAnalyzer(nil)

		Convey("无关键词时返回默认场景", func() {
			scene := analyzer.Analyze("他笑了笑，没有说话")
			So(scene.Location, ShouldEqual, "indoor")
			So(scene.Weather, ShouldEqual, "clear")
			So(scene.TimeOfDay, ShouldEqual, "day")
			So(scene.Atmosphere, ShouldEqual, "calm")
			So(scene.Confidence, ShouldAlmostEqual, 0.7)
			So(scene.Keywords, ShouldBeEmpty)
		})

		Convey("空文本返回默认场景", func() {
			scene := analyzer.Analyze("")
			So(scene.SameAs(DefaultScene()), ShouldBeTrue)
			So(scene.Confidence, ShouldAlmostEqual, 0.7)
		})

		Convey("单个关键词覆盖对应属性并提升置信度", func() {
			scene := analyzer.Analyze("他们来到森林")
			So(scene.Location, ShouldEqual, "forest")
			So(scene.Atmosphere, ShouldEqual, "calm")
			So(scene.Confidence, ShouldAlmostEqual, 0.9)
			So(scene.Keywords, ShouldResemble, []string{"forest", "trees", "nature"})
		})

		Convey("多个关键词命中，置信度上限为 1.0", func() {
			scene := analyzer.Analyze("夜里的森林下着雨，气氛紧张")
			So(scene.Location, ShouldEqual, "forest")
			So(scene.Weather, ShouldEqual, "rainy")
			So(scene.TimeOfDay, ShouldEqual, "night")
			So(scene.Atmosphere, ShouldEqual, "tense")
			So(scene.Confidence, ShouldAlmostEqual, 1.0)
		})

		Convey("同一属性多次命中时以词表中靠后的规则为准", func() {
			scene := analyzer.Analyze("走出房间来到街道")
			So(scene.Location, ShouldEqual, "street")
		})

		Convey("关键词去重且保持首次出现顺序", func() {
			keywords := analyzer.ExtractKeywords("房间和室内")
			So(keywords, ShouldResemble, []string{"room", "indoor"})
		})

		Convey("相同文本分析结果一致", func() {
			a := analyzer.Analyze("城市的夜晚下着雪")
			b := analyzer.Analyze("城市的夜晚下着雪")
			So(a, ShouldResemble, b)
		})
	})
}

func TestSceneInfo_SameAs(t *testing.T) {
	Convey("SceneInfo.SameAs 只比较地点、天气、氛围", t, func() {
		a := DefaultScene()
		b := DefaultScene()
		b.TimeOfDay = "night"
		So(a.SameAs(b), ShouldBeTrue)

		b.Weather = "rainy"
		So(a.SameAs(b), ShouldBeFalse)
		So(b.Prompt(), ShouldEqual, "indoor rainy calm")
	})
}

func TestPromptBuilder_BuildTangoPrompt(t *testing.T) {
	Convey("PromptBuilder.BuildTangoPrompt 构建提示词", t, func() {
		builder := NewPromptBuilder(nil, nil)

		Convey("命中组合模板", func() {
			prompt := builder.BuildTangoPrompt(DefaultScene())
			So(prompt, ShouldEqual, "soft indoor ambience, gentle air conditioning hum, peaceful room tone, cinematic quality, high fidelity audio")
		})

		Convey("地点模板与氛围模板拼接", func() {
			scene := DefaultScene()
			scene.Location = "forest"
			scene.Atmosphere = "action"
			prompt := builder.BuildTangoPrompt(scene)
			So(prompt, ShouldEqual, "forest ambience, birds chirping, leaves rustling, natural environment, intense action atmosphere, dramatic tension, suspenseful ambience, cinematic quality, high fidelity audio")
		})

		Convey("未知词汇使用兜底描述", func() {
			scene := SceneInfo{Location: "spaceship", Weather: "clear", Atmosphere: "weird"}
			prompt := builder.BuildTangoPrompt(scene)
			So(prompt, ShouldEqual, "ambient background, peaceful, cinematic quality, high fidelity audio")
		})

		Convey("非晴天前置天气模板", func() {
			scene := DefaultScene()
			scene.Weather = "rainy"
			prompt := builder.BuildTangoPrompt(scene)
			So(prompt, ShouldStartWith, "heavy rain falling, water drops, storm atmosphere, soft indoor ambience")
		})

		Convey("天气没有模板时不前置", func() {
			scene := DefaultScene()
			scene.Weather = "snowy"
			prompt := builder.BuildTangoPrompt(scene)
			So(prompt, ShouldStartWith, "soft indoor ambience")
		})

		Convey("提示词总是非空", func() {
			So(builder.BuildTangoPrompt(SceneInfo{}), ShouldNotBeEmpty)
		})
	})
}

func TestPromptBuilder_WithElements(t *testing.T) {
	Convey("BuildTangoPromptWithElements 注入前景元素", t, func() {
		builder := NewPromptBuilder(nil, newElementDetector(nil))

		Convey("元素位于质量描述之前", func() {
			prompt := builder.BuildTangoPromptWithElements(DefaultScene(), "门外传来脚步声")
			So(prompt, ShouldEqual, "soft indoor ambience, gentle air conditioning hum, peaceful room tone, footsteps, door creaking, cinematic quality, high fidelity audio")
		})

		Convey("最多注入 3 个元素", func() {
			elements := newElementDetector(nil).Detect("脚步声、敲门、马蹄、篝火、钟声")
			So(len(elements), ShouldEqual, 3)
		})

		Convey("没有识别器时与普通提示词一致", func() {
			plain := NewPromptBuilder(nil, nil)
			So(plain.BuildTangoPromptWithElements(DefaultScene(), "门外传来脚步声"), ShouldEqual, plain.BuildTangoPrompt(DefaultScene()))
		})
	})
}

func TestLoadLexicon(t *testing.T) {
	Convey("LoadLexicon 从 YAML 覆盖词表", t, func() {
		Convey("路径为空返回内置词表", func() {
			lex, err := LoadLexicon("")
			So(err, ShouldBeNil)
			So(len(lex.Rules), ShouldEqual, len(defaultRules))
		})

		Convey("同名关键词替换，新关键词追加", func() {
			path := filepath.Join(t.TempDir(), "lexicon.yaml")
			content := `
rules:
  - keyword: 山
    attribute: location
    value: hill
    tags: [hill]
  - keyword: 沙漠
    attribute: location
    value: desert
    tags: [desert, sand]
tango_templates:
  desert: "dry desert wind, sand shifting"
`
			So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

			lex, err := LoadLexicon(path)
			So(err, ShouldBeNil)
			So(len(lex.Rules), ShouldEqual, len(defaultRules)+1)

			analyzer := NewSceneAnalyzer(lex)
			So(analyzer.Analyze("登上山顶").Location, ShouldEqual, "hill")
			So(analyzer.Analyze("穿越沙漠").Location, ShouldEqual, "desert")

			prompt := NewPromptBuilder(lex, nil).BuildTangoPrompt(analyzer.Analyze("穿越沙漠"))
			So(strings.HasPrefix(prompt, "dry desert wind, sand shifting, peaceful"), ShouldBeTrue)
		})

		Convey("非法属性返回错误", func() {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			content := "rules:\n  - keyword: 月\n    attribute: mood\n    value: x\n"
			So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
			_, err := LoadLexicon(path)
			So(err, ShouldNotBeNil)
		})

		Convey("文件不存在返回错误", func() {
			_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})

		Convey("内置词表互不影响", func() {
			a := DefaultLexicon()
			a.Rules[0].Value = "changed"
			a.TangoTemplates["forest"] = "changed"
			b := DefaultLexicon()
			So(b.Rules[0].Value, ShouldEqual, "indoor")
			So(b.TangoTemplates["forest"], ShouldNotEqual, "changed")
		})
	})
}
