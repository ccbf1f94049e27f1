// Package render turns post descriptions into HTML with highlighted code.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/feedback-board/internal/cache"
	"github.com/debemdeboas/feedback-board/internal/theme"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"
)

var renderLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return escape(code)
	}

	var buf strings.Builder
	style := styles.Get(highlightTheme)
	formatter := theme.GetFormatter()
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return escape(code)
	}
	return buf.String()
}

func escape(s string) string {
	var buf strings.Builder
	md_html.EscapeHTML(&buf, []byte(s))
	return "<pre>" + buf.String() + "</pre>"
}

// RenderMarkdown renders user-written markdown. Raw HTML in the source is
// dropped.
func RenderMarkdown(md []byte, highlightTheme string) []byte {
	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.SkipHTML | md_html.HrefTargetBlank |
			md_html.NofollowLinks | md_html.NoreferrerLinks | md_html.NoopenerLinks,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	md = parser.NormalizeNewlines(md)
	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough |
			parser.SpaceHeadings | parser.BackslashLineBreak | parser.NoEmptyLineBeforeBlock,
	).Parse(md)
	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// Mutex to protect the check-render-set operation in RenderMarkdownCached
var renderCacheMutex sync.Mutex

// RenderMarkdownCached renders md once per content hash and theme.
func RenderMarkdownCached(md []byte, contentHash, highlightTheme string) []byte {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md, highlightTheme)
	}

	if cached, found := cache.GetRenderedMarkdown(contentHash, highlightTheme); found {
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered markdown")
		return cached
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	if cached, found := cache.GetRenderedMarkdown(contentHash, highlightTheme); found {
		return cached
	}

	renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered markdown")
	html := RenderMarkdown(md, highlightTheme)
	cache.SetRenderedMarkdown(contentHash, highlightTheme, html)
	return html
}

// WarmCache pre-renders markdown content asynchronously to warm the cache
func WarmCache(md []byte, contentHash, highlightTheme string) {
	go func() {
		RenderMarkdownCached(md, contentHash, highlightTheme)
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache warming completed")
	}()
}
