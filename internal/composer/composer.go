// Package composer implements the new-post form workflow: seeding from the
// session draft, write-through edits, authentication gating of the title and
// a single in-flight submission.
package composer

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/debemdeboas/feedback-board/internal/catalog"
	"github.com/debemdeboas/feedback-board/internal/draft"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/rs/zerolog"
)

// DraftCache is the session draft the composer writes through to.
type DraftCache interface {
	Get(key string) string
	Set(key, value string)
	Remove(keys ...string)
}

type Identity interface {
	IsAuthenticated() bool
}

// NewPost is what the composer hands to the submission service.
type NewPost struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Module      string              `json:"module"`
	Attachments []model.ImageUpload `json:"attachments"`
}

// PostCreator creates a post. A returned error is shown to the user through
// FailureFromError.
type PostCreator interface {
	CreatePost(ctx context.Context, post NewPost) (*model.Post, error)
}

type Navigator interface {
	Navigate(url string)
}

type NavigatorFunc func(url string)

func (f NavigatorFunc) Navigate(url string) { f(url) }

type Options struct {
	Cache    DraftCache
	Identity Identity
	Creator  PostCreator

	OnSignInRequired     func()
	OnTitleChanged       func(string)
	OnDescriptionChanged func(string)
	OnModuleChanged      func(string)
}

// State is a read-only copy of the composer for rendering.
type State struct {
	Module        string              `json:"module"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Attachments   []model.ImageUpload `json:"-"`
	Authenticated bool                `json:"authenticated"`
	Submitting    bool                `json:"submitting"`
	SubmitEnabled bool                `json:"submitEnabled"`
	Failure       *Failure            `json:"failure,omitempty"`
}

var composerLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	composerLogger = l
}

type Composer struct {
	opts          Options
	authenticated bool

	mu          sync.Mutex
	module      string
	title       string
	description string
	attachments []model.ImageUpload
	failure     *Failure
	inFlight    bool
	navigated   bool
	lastUsed    time.Time
}

// New builds a composer. Fields are seeded from the draft only for signed-in
// viewers; anonymous visitors always start empty.
func New(opts Options) *Composer {
	c := &Composer{
		opts:          opts,
		authenticated: opts.Identity != nil && opts.Identity.IsAuthenticated(),
		lastUsed:      time.Now(),
	}

	if c.authenticated && opts.Cache != nil {
		c.module = opts.Cache.Get(draft.KeyModule)
		c.title = opts.Cache.Get(draft.KeyTitle)
		c.description = opts.Cache.Get(draft.KeyDescription)

		// A draft module that no longer decodes is dropped.
		if c.module != "" && !catalog.Modules.Has(c.module) {
			composerLogger.Warn().Str("module", c.module).Msg("Ignoring unknown draft module")
			c.module = ""
		}
	}

	return c
}

// Authenticated reports the identity the composer was built for.
func (c *Composer) Authenticated() bool {
	return c.authenticated
}

func (c *Composer) signInRequired() {
	if c.opts.OnSignInRequired != nil {
		c.opts.OnSignInRequired()
	}
}

// FocusTitle evaluates TitleGuard for a focus event. On DenySignIn the caller
// must blur the field; the sign-in prompt has already been requested.
func (c *Composer) FocusTitle() Decision {
	if !c.allow(TitleGuard) {
		return DenySignIn
	}
	return Allow
}

// allow evaluates g for the composer's viewer and opens the sign-in prompt
// when it denies.
func (c *Composer) allow(g Guard) bool {
	if g(c.authenticated) == DenySignIn {
		c.signInRequired()
		return false
	}
	return true
}

// SetTitle applies a title edit: state, then draft, then OnTitleChanged.
func (c *Composer) SetTitle(v string) error {
	if !c.allow(TitleGuard) {
		return ErrSignInRequired
	}

	c.mu.Lock()
	c.touch()
	c.title = v
	c.write(draft.KeyTitle, v)
	c.mu.Unlock()

	if c.opts.OnTitleChanged != nil {
		c.opts.OnTitleChanged(v)
	}
	return nil
}

// SetDescription applies a description edit under OpenGuard.
func (c *Composer) SetDescription(v string) {
	if !c.allow(OpenGuard) {
		return
	}

	c.mu.Lock()
	c.touch()
	c.description = v
	c.write(draft.KeyDescription, v)
	c.mu.Unlock()

	if c.opts.OnDescriptionChanged != nil {
		c.opts.OnDescriptionChanged(v)
	}
}

// SetModule selects a module. An empty value clears the selection.
func (c *Composer) SetModule(v string) error {
	if v != "" {
		if _, err := catalog.Modules.Get(v); err != nil {
			return errors.Join(ErrUnknownModule, err)
		}
	}
	if !c.allow(OpenGuard) {
		return ErrSignInRequired
	}

	c.mu.Lock()
	c.touch()
	c.module = v
	c.write(draft.KeyModule, v)
	c.mu.Unlock()

	if c.opts.OnModuleChanged != nil {
		c.opts.OnModuleChanged(v)
	}
	return nil
}

// SetAttachments replaces the pending uploads. Attachments are not persisted
// in the draft.
func (c *Composer) SetAttachments(uploads []model.ImageUpload) {
	if !c.allow(OpenGuard) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.attachments = slices.Clone(uploads)
}

func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmit()
}

func (c *Composer) canSubmit() bool {
	return c.title != "" && c.description != "" && !c.inFlight && !c.navigated
}

// Submit sends the post to the creator. At most one call is in flight; the
// lock is released while waiting so edits and snapshots still proceed.
//
// On success the title and description drafts are removed, the module draft
// is kept and nav receives the post URL. Submission stays disabled since the
// page is leaving. On failure the Failure is stored, the form is left as is
// and submission is enabled again. If ctx is done by the time the result
// arrives the result is discarded.
func (c *Composer) Submit(ctx context.Context, nav Navigator) error {
	return c.submit(ctx, nav, nil)
}

// SubmitWithAttachments replaces the pending uploads and submits. A call
// rejected with ErrSubmissionInFlight leaves the uploads of the pending
// submission in place.
func (c *Composer) SubmitWithAttachments(ctx context.Context, nav Navigator, uploads []model.ImageUpload) error {
	if uploads == nil {
		uploads = []model.ImageUpload{}
	}
	return c.submit(ctx, nav, uploads)
}

// submit replaces the attachments when uploads is non-nil.
func (c *Composer) submit(ctx context.Context, nav Navigator, uploads []model.ImageUpload) error {
	c.mu.Lock()
	if c.inFlight || c.navigated {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if uploads != nil && OpenGuard(c.authenticated) == Allow {
		c.attachments = slices.Clone(uploads)
	}
	if c.title == "" || c.description == "" {
		c.mu.Unlock()
		return ErrNotReady
	}

	c.touch()
	c.inFlight = true
	req := NewPost{
		Title:       c.title,
		Description: c.description,
		Module:      c.module,
		Attachments: slices.Clone(c.attachments),
	}
	c.mu.Unlock()

	post, err := c.opts.Creator.CreatePost(ctx, req)

	c.mu.Lock()
	c.inFlight = false

	// The post may already be stored. The drafts stay, so submitting again
	// after a reload can create a duplicate.
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.mu.Unlock()
		composerLogger.Info().Err(ctxErr).Msg("Submission abandoned, discarding result")
		return ctxErr
	}

	if err == nil && post == nil {
		err = errors.New("creator returned no post")
	}
	if err != nil {
		f := FailureFromError(err)
		c.failure = f
		c.mu.Unlock()
		composerLogger.Debug().Err(err).Str("message", f.Message).Msg("Submission failed")
		return f
	}

	c.failure = nil
	c.navigated = true
	if c.opts.Cache != nil {
		c.opts.Cache.Remove(draft.KeyTitle, draft.KeyDescription)
	}
	c.mu.Unlock()

	url := post.URL()
	composerLogger.Info().Int("number", post.Number).Str("url", url).Msg("Post submitted")
	if nav != nil {
		nav.Navigate(url)
	}
	return nil
}

func (c *Composer) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Module:        c.module,
		Title:         c.title,
		Description:   c.description,
		Attachments:   slices.Clone(c.attachments),
		Authenticated: c.authenticated,
		Submitting:    c.inFlight,
		SubmitEnabled: c.canSubmit(),
		Failure:       c.failure,
	}
}

// Busy reports whether a submission is in flight.
func (c *Composer) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Done reports whether the composer submitted successfully.
func (c *Composer) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigated
}

func (c *Composer) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// write must be called with c.mu held so drafts are written in event order.
func (c *Composer) write(key, value string) {
	if c.opts.Cache != nil {
		c.opts.Cache.Set(key, value)
	}
}

func (c *Composer) touch() {
	c.lastUsed = time.Now()
}
