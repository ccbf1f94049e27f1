package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrUnauthorized           = "Unauthorized"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"

	// Composer errors
	ErrSignInRequired     = "Sign in required"
	ErrSubmissionInFlight = "Submission already in progress"
	ErrSubmissionNotReady = "Title and description are required"
	ErrUnknownModule      = "Unknown module"

	// Challenge errors
	ErrRefreshChallengeFmt = "Failed to refresh challenge"
)
