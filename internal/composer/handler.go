package composer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/debemdeboas/feedback-board/internal/auth"
	"github.com/debemdeboas/feedback-board/internal/cache"
	"github.com/debemdeboas/feedback-board/internal/catalog"
	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/draft"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/routes"
	"github.com/rs/zerolog"
)

// EventSignInRequired is sent in HX-Trigger when the title is denied.
const EventSignInRequired = "signInRequired"

// Handler serves the composer over HTTP, one composer per browser session.
type Handler struct {
	store     draft.Store
	creator   PostCreator
	composers *cache.Cache[string, *Composer]
}

func NewHandler(store draft.Store, creator PostCreator) *Handler {
	return &Handler{
		store:     store,
		creator:   creator,
		composers: cache.NewCache[string, *Composer](),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.NewPost, h.HandleOpen)
	mux.HandleFunc("POST "+routes.NewPostFocusTitle, h.HandleFocusTitle)
	mux.HandleFunc("POST "+routes.NewPostTitle, h.HandleTitle)
	mux.HandleFunc("POST "+routes.NewPostDescription, h.HandleDescription)
	mux.HandleFunc("POST "+routes.NewPostModule, h.HandleModule)
	mux.HandleFunc("POST "+routes.NewPostSubmit, h.HandleSubmit)
}

func (h *Handler) newComposer(sessionID string, session auth.Session, l *zerolog.Logger) *Composer {
	return New(Options{
		Cache:    draft.NewCache(h.store, sessionID, session),
		Identity: session,
		Creator:  h.creator,
		OnSignInRequired: func() {
			l.Debug().Str("session_id", sessionID).Msg("Sign-in required for title")
		},
	})
}

// composerFor returns the session's composer. A new one is built when none
// exists, when the viewer signed in or out since it was built, or when fresh
// is set (a page load) and nothing is in flight.
func (h *Handler) composerFor(w http.ResponseWriter, r *http.Request, fresh bool) (string, *Composer) {
	sessionID := auth.SessionID(w, r)
	session := auth.SessionFromRequest(r)
	l := zerolog.Ctx(r.Context())

	return sessionID, h.composers.Compute(sessionID, func(current *Composer, ok bool) *Composer {
		if ok && current.Authenticated() == session.IsAuthenticated() {
			if !fresh || current.Busy() {
				return current
			}
		}
		return h.newComposer(sessionID, session, l)
	})
}

type stateResponse struct {
	State
	Attachments []string        `json:"attachments"`
	Modules     []catalog.Entry `json:"modules,omitempty"`
}

func writeState(w http.ResponseWriter, status int, s State, withModules bool) {
	resp := stateResponse{State: s, Attachments: make([]string, 0, len(s.Attachments))}
	for _, a := range s.Attachments {
		if a.Upload != nil {
			resp.Attachments = append(resp.Attachments, a.Upload.FileName)
		} else {
			resp.Attachments = append(resp.Attachments, a.BlobKey)
		}
	}
	if withModules {
		resp.Modules = catalog.Modules.All()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSignInRequired(w http.ResponseWriter) {
	w.Header().Set(config.HHxTrigger, EventSignInRequired)
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"allow": false,
		"error": config.ErrSignInRequired,
	})
}

// HandleOpen loads the form.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	_, c := h.composerFor(w, r, true)
	writeState(w, http.StatusOK, c.Snapshot(), true)
}

func (h *Handler) HandleFocusTitle(w http.ResponseWriter, r *http.Request) {
	_, c := h.composerFor(w, r, false)
	if c.FocusTitle() == DenySignIn {
		writeSignInRequired(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"allow": true})
}

func (h *Handler) HandleTitle(w http.ResponseWriter, r *http.Request) {
	_, c := h.composerFor(w, r, false)
	if err := c.SetTitle(r.FormValue("value")); err != nil {
		writeSignInRequired(w)
		return
	}
	writeState(w, http.StatusOK, c.Snapshot(), false)
}

func (h *Handler) HandleDescription(w http.ResponseWriter, r *http.Request) {
	_, c := h.composerFor(w, r, false)
	c.SetDescription(r.FormValue("value"))
	writeState(w, http.StatusOK, c.Snapshot(), false)
}

func (h *Handler) HandleModule(w http.ResponseWriter, r *http.Request) {
	_, c := h.composerFor(w, r, false)
	if err := c.SetModule(r.FormValue("value")); err != nil {
		http.Error(w, config.ErrUnknownModule, http.StatusBadRequest)
		return
	}
	writeState(w, http.StatusOK, c.Snapshot(), false)
}

// HandleSubmit accepts an optional multipart body whose "attachments" files
// replace the pending uploads unless a submission is already in flight.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	sessionID, c := h.composerFor(w, r, false)

	var target string
	nav := NavigatorFunc(func(url string) { target = url })

	var err error
	if strings.HasPrefix(r.Header.Get(config.HCType), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, config.MaxSubmitBodyBytes)
		if err := r.ParseMultipartForm(config.MaxSubmitBodyBytes); err != nil {
			l.Debug().Err(err).Msg("Failed to parse submission form")
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		uploads, readErr := readUploads(r.MultipartForm.File["attachments"])
		if readErr != nil {
			l.Debug().Err(readErr).Msg("Failed to read attachments")
			http.Error(w, "Invalid attachment", http.StatusBadRequest)
			return
		}
		err = c.SubmitWithAttachments(r.Context(), nav, uploads)
	} else {
		err = c.Submit(r.Context(), nav)
	}

	var failure *Failure
	switch {
	case err == nil:
		h.composers.DeleteFunc(func(id string, cur *Composer) bool { return id == sessionID && cur == c })

		w.Header().Set(config.HHxRedirect, target)
		http.Redirect(w, r, target, http.StatusSeeOther)

	case errors.Is(err, ErrSubmissionInFlight):
		http.Error(w, config.ErrSubmissionInFlight, http.StatusConflict)

	case errors.Is(err, ErrNotReady):
		http.Error(w, config.ErrSubmissionNotReady, http.StatusBadRequest)

	case errors.As(err, &failure):
		writeJSON(w, http.StatusUnprocessableEntity, failure)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client is gone; nobody reads this response.
		l.Debug().Err(err).Msg("Submission abandoned")

	default:
		l.Error().Err(err).Msg("Unexpected submission error")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func readUploads(files []*multipart.FileHeader) ([]model.ImageUpload, error) {
	uploads := make([]model.ImageUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}

		// Browsers and multipart writers often send a generic type.
		contentType := fh.Header.Get(config.HCType)
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(content)
		}

		uploads = append(uploads, model.ImageUpload{
			Upload: &model.ImageUploadData{
				FileName:    fh.Filename,
				ContentType: contentType,
				Content:     content,
			},
		})
	}
	return uploads, nil
}

// Evict drops composers idle for longer than maxIdle and returns how many
// were removed. Composers with a submission in flight are kept.
func (h *Handler) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	return h.composers.DeleteFunc(func(_ string, c *Composer) bool {
		return !c.Busy() && c.idleSince().Before(cutoff)
	})
}

func (h *Handler) Len() int {
	return h.composers.Len()
}
