package scenetools

import (
	"strings"

	"github.com/go-ego/gse"
	"github.com/rs/zerolog/log"
)

// soundElement 文本中的前景声音线索
type soundElement struct {
	words  []string // 触发词
	phrase string   // 注入提示词的英文描述
}

var defaultElements = []soundElement{
	{[]string{"脚步", "脚步声", "走路", "奔跑"}, "footsteps"},
	{[]string{"门", "推门", "关门", "敲门"}, "door creaking"},
	{[]string{"马", "马蹄", "骑马"}, "horse hooves"},
	{[]string{"火焰", "篝火", "火堆", "燃烧"}, "crackling fire"},
	{[]string{"钟", "钟声", "铃声"}, "bell tolling"},
	{[]string{"鸟", "鸟鸣", "鸟叫"}, "birds chirping"},
	{[]string{"狗", "狗叫", "犬吠"}, "dog barking"},
	{[]string{"剑", "刀剑", "兵器"}, "metal clashing"},
	{[]string{"流水", "溪水", "河水", "小溪"}, "flowing water"},
	{[]string{"人群", "喧哗", "吵闹"}, "crowd murmur"},
}

const maxElements = 3

// ElementDetector 从对白文本中识别前景声音元素
// 有分词器时按词匹配，分词器不可用时降级为子串匹配
type ElementDetector struct {
	segmenter *gse.Segmenter
	elements  []soundElement
}

// NewElementDetector 创建元素识别器，加载 gse 默认词典
func NewElementDetector() *ElementDetector {
	seg := &gse.Segmenter{}
	if err := seg.LoadDict(); err != nil {
		log.Warn().Err(err).Msg("gse 分词器初始化失败，降级为子串匹配")
		return newElementDetector(nil)
	}
	return newElementDetector(seg)
}

func newElementDetector(seg *gse.Segmenter) *ElementDetector {
	return &ElementDetector{segmenter: seg, elements: defaultElements}
}

// Detect 返回文本命中的元素描述（按词表顺序，最多 3 个）
func (d *ElementDetector) Detect(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var tokens map[string]struct{}
	if d.segmenter != nil {
		words := d.segmenter.Cut(text, false)
		tokens = make(map[string]struct{}, len(words))
		for _, w := range words {
			tokens[w] = struct{}{}
		}
	}

	var phrases []string
	for _, el := range d.elements {
		if d.matches(el, text, tokens) {
			phrases = append(phrases, el.phrase)
			if len(phrases) == maxElements {
				break
			}
		}
	}
	return phrases
}

func (d *ElementDetector) matches(el soundElement, text string, tokens map[string]struct{}) bool {
	for _, w := range el.words {
		if tokens != nil {
			if _, ok := tokens[w]; ok {
				return true
			}
			continue
		}
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
