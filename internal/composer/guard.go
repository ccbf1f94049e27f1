package composer

// Decision is the outcome of a guard check on an input event.
type Decision int

const (
	Allow Decision = iota
	// DenySignIn rejects the input; the field is blurred and the sign-in
	// prompt opened instead.
	DenySignIn
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenySignIn:
		return "deny-sign-in"
	default:
		return "unknown"
	}
}

// Guard is evaluated at the moment of an input event.
type Guard func(authenticated bool) Decision

// TitleGuard only lets signed-in viewers type a title.
func TitleGuard(authenticated bool) Decision {
	if authenticated {
		return Allow
	}
	return DenySignIn
}

// OpenGuard allows everyone. Description, attachments and module selection
// use it so visitors can draft before signing in.
func OpenGuard(bool) Decision {
	return Allow
}
