package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"
	HLocation     = "Location"

	HHxRedirect = "HX-Redirect"
	HHxTrigger  = "HX-Trigger"

	CTypeCSS       = "text/css"
	CTypeHTML      = "text/html"
	CTypeJSON      = "application/json"
	CTypeEventFeed = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieSession   = "session-id"
	CookieAuthToken = "auth_token"
	CookieClerk     = "__session"
)

// Maximum multipart body accepted by the submit endpoint.
const MaxSubmitBodyBytes = 16 << 20
