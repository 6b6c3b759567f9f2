package service

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	notesEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)
	notesPolicy = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// RenderNotes 把出钓备注按 Markdown 渲染为安全的 HTML
func RenderNotes(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := notesEngine.Convert([]byte(markdown), &buf); err != nil {
		return "<p>" + html.EscapeString(markdown) + "</p>"
	}
	return string(notesPolicy.SanitizeBytes(buf.Bytes()))
}

// StripMarkup 去掉文本中的全部标签，用于搜索摘要等纯文本场景
func StripMarkup(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(value)))
}
