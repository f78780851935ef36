// Package renderer 负责把占位符内容代入模板正文
package renderer

import (
	"fmt"
	"sort"
	"strings"
)

// MissingContent 返回占位符未提供内容时的替代文本
func MissingContent(name string) string {
	return fmt.Sprintf("[%s content not provided]", name)
}

// Render 将 text 中的 {{name}} 替换为 values[name]。
// 空内容使用 MissingContent 代替；未在 values 中出现的标记保持原样。
// 替换为单遍扫描，代入的内容不会被再次替换。
func Render(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		content := values[name]
		if content == "" {
			content = MissingContent(name)
		}
		pairs = append(pairs, "{{"+name+"}}", content)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
