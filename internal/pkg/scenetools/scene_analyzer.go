package scenetools

import (
	"fmt"
	"strings"
)

// 场景默认值
const (
	DefaultLocation   = "indoor"
	DefaultWeather    = "clear"
	DefaultTimeOfDay  = "day"
	DefaultAtmosphere = "calm"

	baseConfidence = 0.7
	confidenceStep = 0.2
)

// SceneInfo 场景信息（值类型，分析后不再修改）
type SceneInfo struct {
	Location   string   `json:"location"`
	Weather    string   `json:"weather"`
	TimeOfDay  string   `json:"time_of_day"`
	Atmosphere string   `json:"atmosphere"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

// DefaultScene 无任何关键词命中时的场景
func DefaultScene() SceneInfo {
	return SceneInfo{
		Location:   DefaultLocation,
		Weather:    DefaultWeather,
		TimeOfDay:  DefaultTimeOfDay,
		Atmosphere: DefaultAtmosphere,
		Keywords:   []string{},
		Confidence: baseConfidence,
	}
}

// SameAs 判断两个场景是否视为同一场景
// 只比较地点、天气、氛围，时间段变化不算切换
func (s SceneInfo) SameAs(other SceneInfo) bool {
	return s.Location == other.Location &&
		s.Weather == other.Weather &&
		s.Atmosphere == other.Atmosphere
}

// Prompt 场景简述，格式 "{location} {weather} {atmosphere}"
func (s SceneInfo) Prompt() string {
	return fmt.Sprintf("%s %s %s", s.Location, s.Weather, s.Atmosphere)
}

// SceneAnalyzer 基于关键词的场景分析器
type SceneAnalyzer struct {
	lexicon *Lexicon
}

// NewSceneAnalyzer 创建场景分析器，lexicon 为 nil 时使用内置词表
func NewSceneAnalyzer(lexicon *Lexicon) *SceneAnalyzer {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &SceneAnalyzer{lexicon: lexicon}
}

// Lexicon 返回当前词表
func (a *SceneAnalyzer) Lexicon() *Lexicon {
	return a.lexicon
}

// Analyze 分析文本的场景
// 每命中一个关键词：覆盖对应属性，置信度 +0.2（上限 1.0）
func (a *SceneAnalyzer) Analyze(text string) SceneInfo {
	scene := DefaultScene()
	scene.Keywords = a.ExtractKeywords(text)

	for _, rule := range a.lexicon.Rules {
		if rule.Keyword == "" || !strings.Contains(text, rule.Keyword) {
			continue
		}

		switch rule.Attribute {
		case AttrLocation:
			scene.Location = rule.Value
		case AttrWeather:
			scene.Weather = rule.Value
		case AttrTimeOfDay:
			scene.TimeOfDay = rule.Value
		case AttrAtmosphere:
			scene.Atmosphere = rule.Value
		}

		scene.Confidence += confidenceStep
		if scene.Confidence > 1.0 {
			scene.Confidence = 1.0
		}
	}

	return scene
}

// ExtractKeywords 提取文本命中的英文场景词（去重，保持首次出现顺序）
func (a *SceneAnalyzer) ExtractKeywords(text string) []string {
	keywords := []string{}
	seen := make(map[string]struct{})

	for _, rule := range a.lexicon.Rules {
		if rule.Keyword == "" || !strings.Contains(text, rule.Keyword) {
			continue
		}
		for _, tag := range rule.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			keywords = append(keywords, tag)
		}
	}

	return keywords
}
