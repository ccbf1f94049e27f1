package config

const (
	DefaultSyntaxTheme = "gruvbox"

	CookieSyntaxTheme = "syntax-theme"
)
