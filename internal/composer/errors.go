package composer

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrSignInRequired     = errors.New("sign in required")
	ErrNotReady           = errors.New("title and description are required")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrUnknownModule      = errors.New("unknown module")
)

const genericFailureMessage = "Could not create the post. Please try again."

// Failure is a submission error the user can act on. Fields maps an input
// name (title, description, attachments, module) to its message.
type Failure struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`

	err error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.err
}

// Field returns the message for one input, or "".
func (f *Failure) Field(name string) string {
	if f == nil {
		return ""
	}
	return f.Fields[name]
}

func NewFailure(message string) *Failure {
	return &Failure{Message: message}
}

// FailureFromError converts err into a Failure. Validation errors keep their
// per-field messages; anything else gets a generic message and is kept for
// errors.Is/As.
func FailureFromError(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		names := make([]string, 0, len(verrs))
		for name, ferr := range verrs {
			if ferr != nil {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		fields := make(map[string]string, len(names))
		msgs := make([]string, 0, len(names))
		for _, name := range names {
			fields[name] = verrs[name].Error()
			msgs = append(msgs, capitalize(name)+" "+verrs[name].Error())
		}
		return &Failure{Message: strings.Join(msgs, "; "), Fields: fields, err: err}
	}

	return &Failure{Message: genericFailureMessage, err: err}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
