// Package routes defines HTTP route constants for the application.
package routes

// Board
const (
	RootPath       = "/"
	PostsPrefix    = "/posts/"
	Post           = "/posts/{number}/{slug}"
	PostByNumber   = "/posts/{number}"
	Events         = "/events"
	SyntaxThemeGet = "/syntax-theme/{theme}"
	Attachments    = "/attachments/"
)

// Composer
const (
	NewPost            = "/new/post"
	NewPostFocusTitle  = "/new/post/focus-title"
	NewPostTitle       = "/new/post/title"
	NewPostDescription = "/new/post/description"
	NewPostModule      = "/new/post/module"
	NewPostSubmit      = "/new/post/submit"
)

// API
const (
	APIPosts    = "/api/posts"
	APIStatuses = "/api/statuses"
	APIModules  = "/api/modules"
)

// Auth
const (
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	AuthLogin     = "/auth/login"
	WebhookUser   = "/webhook/user"
)
