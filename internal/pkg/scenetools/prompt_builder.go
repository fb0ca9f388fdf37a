package scenetools

import (
	"fmt"
	"strings"
)

const (
	fallbackLocationPrompt   = "ambient background"
	fallbackAtmospherePrompt = "peaceful"
	qualitySuffix            = "cinematic quality, high fidelity audio"
)

// PromptBuilder 将场景信息转换为环境音生成提示词
type PromptBuilder struct {
	templates map[string]string
	elements  *ElementDetector
}

// NewPromptBuilder 创建提示词构建器
// elements 为 nil 时不注入前景元素
func NewPromptBuilder(lexicon *Lexicon, elements *ElementDetector) *PromptBuilder {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &PromptBuilder{templates: lexicon.TangoTemplates, elements: elements}
}

// BuildTangoPrompt 构建提示词，结果总是非空
//
// 优先使用 "{location}_{atmosphere}" 组合模板，
// 否则由地点模板与氛围模板拼接；非晴天时前置天气模板
func (b *PromptBuilder) BuildTangoPrompt(scene SceneInfo) string {
	return b.build(scene, nil)
}

// BuildTangoPromptWithElements 构建提示词并注入文本中的前景声音元素
func (b *PromptBuilder) BuildTangoPromptWithElements(scene SceneInfo, text string) string {
	if b.elements == nil {
		return b.build(scene, nil)
	}
	return b.build(scene, b.elements.Detect(text))
}

func (b *PromptBuilder) build(scene SceneInfo, elements []string) string {
	base, ok := b.templates[scene.Location+"_"+scene.Atmosphere]
	if !ok {
		location := b.templateOr(scene.Location, fallbackLocationPrompt)
		atmosphere := b.templateOr(scene.Atmosphere, fallbackAtmospherePrompt)
		base = fmt.Sprintf("%s, %s", location, atmosphere)
	}

	if scene.Weather != DefaultWeather {
		if weather := b.templates[scene.Weather]; weather != "" {
			base = fmt.Sprintf("%s, %s", weather, base)
		}
	}

	parts := []string{base}
	parts = append(parts, elements...)
	parts = append(parts, qualitySuffix)
	return strings.Join(parts, ", ")
}

func (b *PromptBuilder) templateOr(key, fallback string) string {
	if t, ok := b.templates[key]; ok && t != "" {
		return t
	}
	return fallback
}
