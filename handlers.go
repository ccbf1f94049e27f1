package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/debemdeboas/feedback-board/internal/catalog"
	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/render"
	"github.com/debemdeboas/feedback-board/internal/repository"
	"github.com/debemdeboas/feedback-board/internal/routes"
	"github.com/debemdeboas/feedback-board/internal/theme"
	"github.com/debemdeboas/feedback-board/internal/util"
	"github.com/rs/zerolog"
)

const excerptLength = 200

// app serves the read side of the board.
type app struct {
	repo    repository.PostRepository
	perPage int
}

func (a *app) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})

	mux.HandleFunc("GET "+routes.Post, a.servePost)
	mux.HandleFunc("GET "+routes.PostByNumber, a.servePostByNumber)
	mux.HandleFunc("GET "+routes.APIPosts, a.serveAPIPosts)
	mux.HandleFunc("GET "+routes.APIStatuses, serveCatalog(catalog.Statuses))
	mux.HandleFunc("GET "+routes.APIModules, serveCatalog(catalog.Modules))
	mux.HandleFunc("GET "+routes.SyntaxThemeGet, theme.HandleSyntaxThemeCSS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func serveCatalog(r *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, r.All())
	}
}

// lookupPost resolves the {number} path value. It writes the error response
// and returns nil when the post cannot be shown.
func (a *app) lookupPost(w http.ResponseWriter, r *http.Request) *model.Post {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		http.NotFound(w, r)
		return nil
	}

	post, err := a.repo.GetPostByNumber(r.Context(), number)
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		http.NotFound(w, r)
		return nil
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Int("number", number).Msg("Failed to load post")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return nil
	case post.Status == catalog.StatusDeleted.Value:
		http.NotFound(w, r)
		return nil
	}
	return post
}

type postView struct {
	*model.Post
	StatusEntry     catalog.Entry  `json:"statusEntry"`
	ModuleEntry     *catalog.Entry `json:"moduleEntry,omitempty"`
	Closed          bool           `json:"closed"`
	DescriptionHTML template.HTML  `json:"descriptionHtml"`
}

func newPostView(post *model.Post, syntaxTheme string) postView {
	view := postView{
		Post:        post,
		StatusEntry: post.StatusEntry(),
		Closed:      post.IsClosed(),
		DescriptionHTML: template.HTML(render.RenderMarkdownCached(
			[]byte(post.Description), post.DescriptionHash, syntaxTheme,
		)),
	}
	if entry, ok := post.ModuleEntry(); ok {
		view.ModuleEntry = &entry
	}
	return view
}

// servePost shows a post. Any slug other than the stored one redirects to
// the canonical address.
func (a *app) servePost(w http.ResponseWriter, r *http.Request) {
	post := a.lookupPost(w, r)
	if post == nil {
		return
	}

	if r.PathValue("slug") != post.Slug {
		http.Redirect(w, r, post.URL(), http.StatusMovedPermanently)
		return
	}

	w.Header().Set(config.HETag, util.ContentHashString(post.DescriptionHash+post.Status+theme.GetSyntaxThemeFromRequest(r)))
	writeJSON(w, http.StatusOK, newPostView(post, theme.GetSyntaxThemeFromRequest(r)))
}

func (a *app) servePostByNumber(w http.ResponseWriter, r *http.Request) {
	if post := a.lookupPost(w, r); post != nil {
		http.Redirect(w, r, post.URL(), http.StatusMovedPermanently)
	}
}

type postSummary struct {
	Number        int      `json:"number"`
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	URL           string   `json:"url"`
	Status        string   `json:"status"`
	Module        string   `json:"module,omitempty"`
	VotesCount    int      `json:"votesCount"`
	CommentsCount int      `json:"commentsCount"`
	Tags          []string `json:"tags"`
}

type postList struct {
	Posts []postSummary `json:"posts"`
	Total int           `json:"total"`
}

// filterValue checks a list filter against the registry's filterable
// entries. An empty value means no filter.
func filterValue(r *catalog.Registry, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}
	for _, e := range r.Filterable() {
		if e.Value == value {
			return e.Value, true
		}
	}
	return "", false
}

func invalidFilter(w http.ResponseWriter, r *catalog.Registry) {
	http.Error(w, "Invalid "+r.Name()+" filter", http.StatusBadRequest)
}

// serveAPIPosts lists posts filtered by status and module.
func (a *app) serveAPIPosts(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	q := r.URL.Query()
	opts := repository.ListOptions{Limit: a.perPage}

	var ok bool
	if opts.Status, ok = filterValue(catalog.Statuses, q.Get("status")); !ok {
		invalidFilter(w, catalog.Statuses)
		return
	}
	if opts.Module, ok = filterValue(catalog.Modules, q.Get("module")); !ok {
		invalidFilter(w, catalog.Modules)
		return
	}

	posts, err := a.repo.ListPosts(r.Context(), opts)
	if err != nil {
		l.Error().Err(err).Msg("Failed to list posts")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	total, err := a.repo.CountPosts(r.Context(), opts)
	if err != nil {
		l.Error().Err(err).Msg("Failed to count posts")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	resp := postList{Posts: make([]postSummary, 0, len(posts)), Total: total}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, postSummary{
			Number:        p.Number,
			Title:         p.Title,
			Excerpt:       util.Excerpt(p.Description, excerptLength),
			URL:           p.URL(),
			Status:        p.Status,
			Module:        p.Module,
			VotesCount:    p.VotesCount,
			CommentsCount: p.CommentsCount,
			Tags:          p.Tags,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func cacheIt(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		// Attachment keys are unique per upload.
		if strings.HasPrefix(r.URL.Path, routes.Attachments) {
			w.Header().Set(config.HCacheControl, "public, max-age=31536000, immutable")
		}

		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}

// withRequestLogger puts a request-scoped logger into the context for
// zerolog.Ctx.
func withRequestLogger(l zerolog.Logger, h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := l.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		h.ServeHTTP(w, r.WithContext(rl.WithContext(r.Context())))
	}
}
