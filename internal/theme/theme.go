// Package theme picks the syntax highlighting theme and serves its CSS.
package theme

import (
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/feedback-board/internal/cache"
	"github.com/debemdeboas/feedback-board/internal/config"
)

// DefaultSyntaxTheme is the configured theme, or config.DefaultSyntaxTheme
// before a config is loaded.
func DefaultSyntaxTheme() string {
	if config.AppConfig != nil && config.AppConfig.Theme.SyntaxTheme != "" {
		return config.AppConfig.Theme.SyntaxTheme
	}
	return config.DefaultSyntaxTheme
}

// GetSyntaxThemeFromRequest reads the syntax theme cookie. Unknown names fall
// back to the default.
func GetSyntaxThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil && IsSyntaxTheme(cookie.Value) {
		return cookie.Value
	}
	return DefaultSyntaxTheme()
}

func IsSyntaxTheme(name string) bool {
	_, found := slices.BinarySearch(GetSyntaxThemes(), name)
	return found
}

func GetSyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func GetFormatter() *html.Formatter {
	formatter := html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(true),
		html.WrapLongLines(true),
	)
	return formatter
}

func GenerateSyntaxCSS(theme string) template.CSS {
	if css, ok := cache.GetSyntaxCSS(theme); ok {
		return css
	}

	var buf strings.Builder
	formatter := GetFormatter()
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Calculate the color of highlighted text given the background color
		// for when the Chroma theme doesn't supply a default
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	formatter.WriteCSS(&buf, style)
	css := template.CSS(buf.String())
	cache.SetSyntaxCSS(theme, css)
	return css
}

// HandleSyntaxThemeCSS serves the stylesheet for the {theme} path value and
// remembers the choice in a cookie.
func HandleSyntaxThemeCSS(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("theme")
	if !IsSyntaxTheme(name) {
		http.NotFound(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    name,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HCacheControl, "public, max-age=86400")
	w.Write([]byte(GenerateSyntaxCSS(name)))
}
