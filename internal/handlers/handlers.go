package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"expensebook/internal/auth"
	"expensebook/internal/expenses"
	applog "expensebook/internal/log"
	"expensebook/internal/models"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName is the name of the one-time message cookie.
	FlashCookieName = "flash"

	flashTTL = 5 * time.Minute
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

var views = []string{
	"index.html",
	"register.html",
	"login.html",
	"dashboard.html",
	"add_expense.html",
	"expenses.html",
	"error.html",
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *auth.Service
	expenses     *expenses.Service
	signer       *auth.Signer
	templates    map[string]*template.Template
	secureCookie bool
}

// NewHandlers creates a new Handlers instance, parsing every view from
// templates up front.
func NewHandlers(authSvc *auth.Service, expenseSvc *expenses.Service, signer *auth.Signer, templates fs.FS, secureCookie bool) (*Handlers, error) {
	parsed := make(map[string]*template.Template, len(views))
	for _, view := range views {
		tmpl, err := template.New(view).Funcs(funcs).ParseFS(templates, "base.html", view)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", view, err)
		}
		parsed[view] = tmpl
	}

	return &Handlers{
		auth:         authSvc,
		expenses:     expenseSvc,
		signer:       signer,
		templates:    parsed,
		secureCookie: secureCookie,
	}, nil
}

// Mount registers the application routes on mux.
func (h *Handlers) Mount(mux *http.ServeMux) {
	public := func(fn http.HandlerFunc) http.Handler { return h.WithSession(fn) }
	private := func(fn http.HandlerFunc) http.Handler { return h.AuthMiddleware(fn) }

	mux.Handle("GET /{$}", public(h.Index))
	mux.Handle("GET /register", public(h.RegisterForm))
	mux.Handle("POST /register", public(h.Register))
	mux.Handle("GET /login", public(h.LoginForm))
	mux.Handle("POST /login", public(h.Login))
	mux.HandleFunc("GET /logout", h.Logout)
	mux.Handle("GET /export", public(h.Export))

	mux.Handle("GET /dashboard", private(h.Dashboard))
	mux.Handle("GET /dashboard/charts/categories.png", private(h.CategoryChart))
	mux.Handle("GET /dashboard/charts/months.png", private(h.MonthChart))
	mux.Handle("GET /add-expense", private(h.AddExpenseForm))
	mux.Handle("POST /add-expense", private(h.AddExpense))
	mux.Handle("GET /expenses", private(h.ListExpenses))
	mux.Handle("GET /delete-expense/{id}", private(h.DeleteExpense))
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// resolveSession returns the user behind the session cookie, if any. Stale
// cookies are cleared and renewed sessions get a fresh cookie.
func (h *Handlers) resolveSession(w http.ResponseWriter, r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := h.auth.Resume(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			h.clearCookie(w, SessionCookieName)
			return nil, nil
		}
		return nil, err
	}

	if session.Renewed {
		h.setSessionCookie(w, session)
	}
	return session.User, nil
}

// WithSession attaches the logged-in user, if any, to the request context.
func (h *Handlers) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.resolveSession(w, r)
		if err != nil {
			applog.FromContext(r.Context()).Warn("session lookup failed", applog.FieldError, err)
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware wraps handlers to require authentication. Anonymous
// requests are sent to the login page.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.resolveSession(w, r)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if user == nil {
			h.setFlash(w, FlashDanger, "Please login first!")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Cookie,
		Path:     "/",
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// setFlash queues a message for the next rendered page.
func (h *Handlers) setFlash(w http.ResponseWriter, category, message string) {
	value, err := h.signer.SignFlash(category, message, flashTTL)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(flashTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlashes consumes the queued message, if any.
func (h *Handlers) takeFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	h.clearCookie(w, FlashCookieName)

	claims, err := h.signer.ParseFlash(cookie.Value)
	if err != nil {
		return nil
	}
	return []Flash{{Category: claims.Category, Message: claims.Message}}
}

// Page is the data every template receives.
type Page struct {
	Title   string
	User    *models.User
	Flashes []Flash
	Data    any
}

// render executes a view with status. Inline flashes are shown after any
// queued one.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, view, title string, data any, flashes ...Flash) {
	tmpl, ok := h.templates[view]
	if !ok {
		applog.FromContext(r.Context()).Error("unknown template", "view", view)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	page := Page{
		Title:   title,
		User:    GetUserFromContext(r),
		Flashes: append(h.takeFlashes(w, r), flashes...),
		Data:    data,
	}

	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, target, page); err != nil {
		applog.FromContext(r.Context()).Error("template execution failed", "view", view, applog.FieldError, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ErrorViewModel is the data passed to the error template.
type ErrorViewModel struct {
	Message   string
	RequestID string
}

// serverError logs err and renders the generic error page.
func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger := applog.FromContext(r.Context())
	if user := GetUserFromContext(r); user != nil {
		logger = logger.With(applog.FieldUserID, user.ID)
	}
	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, applog.FieldError, err)

	h.render(w, r, http.StatusInternalServerError, "error.html", "Error", ErrorViewModel{
		Message:   "An unexpected error occurred. Please try again.",
		RequestID: applog.RequestID(r.Context()),
	})
}
