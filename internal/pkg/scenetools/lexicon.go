package scenetools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Attribute 关键词影响的场景属性
type Attribute string

const (
	AttrLocation   Attribute = "location"
	AttrWeather    Attribute = "weather"
	AttrTimeOfDay  Attribute = "time_of_day"
	AttrAtmosphere Attribute = "atmosphere"
)

// Valid 判断属性名是否合法
func (a Attribute) Valid() bool {
	switch a {
	case AttrLocation, AttrWeather, AttrTimeOfDay, AttrAtmosphere:
		return true
	}
	return false
}

// KeywordRule 中文关键词到场景属性的映射
// Tags 为该关键词贡献的英文描述词
type KeywordRule struct {
	Keyword   string    `yaml:"keyword" json:"keyword"`
	Attribute Attribute `yaml:"attribute" json:"attribute"`
	Value     string    `yaml:"value" json:"value"`
	Tags      []string  `yaml:"tags" json:"tags"`
}

// Lexicon 场景词表
// Rules 按声明顺序扫描，顺序决定同一属性多次命中时的最终取值
type Lexicon struct {
	Rules          []KeywordRule     `yaml:"rules"`
	TangoTemplates map[string]string `yaml:"tango_templates"`
}

// DefaultLexicon 返回内置词表（每次返回新副本，可安全修改）
func DefaultLexicon() *Lexicon {
	rules := make([]KeywordRule, len(defaultRules))
	for i, r := range defaultRules {
		rules[i] = KeywordRule{
			Keyword:   r.Keyword,
			Attribute: r.Attribute,
			Value:     r.Value,
			Tags:      append([]string(nil), r.Tags...),
		}
	}

	templates := make(map[string]string, len(defaultTangoTemplates))
	for k, v := range defaultTangoTemplates {
		templates[k] = v
	}

	return &Lexicon{Rules: rules, TangoTemplates: templates}
}

// LoadLexicon 从 YAML 文件加载词表并覆盖内置词表
// 同名关键词替换内置规则（保持原位置），新关键词追加在末尾；模板按 key 覆盖
// path 为空时直接返回内置词表
func LoadLexicon(path string) (*Lexicon, error) {
	base := DefaultLexicon()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}

	if err := base.Merge(&override); err != nil {
		return nil, err
	}
	return base, nil
}

// Merge 合并另一份词表
func (l *Lexicon) Merge(other *Lexicon) error {
	index := make(map[string]int, len(l.Rules))
	for i, r := range l.Rules {
		index[r.Keyword] = i
	}

	for _, r := range other.Rules {
		if r.Keyword == "" {
			return fmt.Errorf("lexicon rule with empty keyword")
		}
		if !r.Attribute.Valid() {
			return fmt.Errorf("lexicon rule %q: invalid attribute %q", r.Keyword, r.Attribute)
		}
		if i, ok := index[r.Keyword]; ok {
			l.Rules[i] = r
			continue
		}
		index[r.Keyword] = len(l.Rules)
		l.Rules = append(l.Rules, r)
	}

	if l.TangoTemplates == nil {
		l.TangoTemplates = make(map[string]string)
	}
	for k, v := range other.TangoTemplates {
		l.TangoTemplates[k] = v
	}
	return nil
}

var defaultRules = []KeywordRule{
	// 地点
	{"房间", AttrLocation, "indoor", []string{"room", "indoor"}},
	{"室内", AttrLocation, "indoor", []string{"indoor", "room"}},
	{"户外", AttrLocation, "outdoor", []string{"outdoor", "nature"}},
	{"森林", AttrLocation, "forest", []string{"forest", "trees", "nature"}},
	{"城市", AttrLocation, "city", []string{"city", "urban", "traffic"}},
	{"海边", AttrLocation, "beach", []string{"ocean", "waves", "beach"}},
	{"山", AttrLocation, "mountain", []string{"mountain", "wind", "echo"}},
	{"街道", AttrLocation, "street", []string{"street", "traffic", "footsteps"}},

	// 天气
	{"雨", AttrWeather, "rainy", []string{"rain", "water", "drops"}},
	{"雷", AttrWeather, "stormy", []string{"thunder", "storm", "lightning"}},
	{"风", AttrWeather, "windy", []string{"wind", "breeze", "air"}},
	{"雪", AttrWeather, "snowy", []string{"snow", "winter", "cold"}},

	// 时间
	{"夜", AttrTimeOfDay, "night", []string{"night", "crickets", "quiet"}},
	{"晚", AttrTimeOfDay, "evening", []string{"evening", "sunset"}},
	{"早", AttrTimeOfDay, "morning", []string{"morning", "birds", "dawn"}},
	{"午", AttrTimeOfDay, "noon", []string{"noon", "midday"}},

	// 氛围
	{"紧张", AttrAtmosphere, "tense", []string{"tense", "suspense", "dramatic"}},
	{"恐怖", AttrAtmosphere, "scary", []string{"scary", "horror", "dark"}},
	{"浪漫", AttrAtmosphere, "romantic", []string{"romantic", "soft", "gentle"}},
	{"战斗", AttrAtmosphere, "action", []string{"action", "battle", "intense"}},
	{"安静", AttrAtmosphere, "calm", []string{"calm", "peaceful", "serene"}},
}

var defaultTangoTemplates = map[string]string{
	"indoor_calm":   "soft indoor ambience, gentle air conditioning hum, peaceful room tone",
	"indoor_tense":  "tense indoor atmosphere, subtle creaking sounds, dramatic silence",
	"outdoor_day":   "outdoor daytime ambience, gentle breeze, distant nature sounds",
	"outdoor_night": "night outdoor ambience, cricket sounds, soft wind through trees",
	"forest":        "forest ambience, birds chirping, leaves rustling, natural environment",
	"city":          "urban city ambience, distant traffic, urban life sounds",
	"rainy":         "heavy rain falling, water drops, storm atmosphere",
	"windy":         "strong wind blowing, air movement, atmospheric breeze",
	"action":        "intense action atmosphere, dramatic tension, suspenseful ambience",
	"romantic":      "romantic soft ambience, gentle warm atmosphere, intimate setting",
}
