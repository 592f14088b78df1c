package handlers

import (
	"errors"
	"net/http"

	"expensebook/internal/auth"
	applog "expensebook/internal/log"
)

// CredentialsViewModel holds data for the login and register pages.
type CredentialsViewModel struct {
	Username string
}

// Index renders the landing page.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index.html", "", nil)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", "Register", CredentialsViewModel{})
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "register.html", "Register", CredentialsViewModel{},
			Flash{FlashDanger, "Invalid form submission"})
		return
	}

	username := r.FormValue("username")
	vm := CredentialsViewModel{Username: username}

	_, err := h.auth.Register(r.Context(), username, r.FormValue("password"))
	switch {
	case err == nil:
		applog.FromContext(r.Context()).Info("user registered", "username", username)
		h.setFlash(w, FlashSuccess, "Registration successful! Please login.")
		http.Redirect(w, r, "/login", http.StatusFound)
	case errors.Is(err, auth.ErrDuplicateUsername):
		h.render(w, r, http.StatusOK, "register.html", "Register", vm,
			Flash{FlashDanger, "Username already exists! Try another."})
	case errors.Is(err, auth.ErrMissingCredentials):
		h.render(w, r, http.StatusOK, "register.html", "Register", vm,
			Flash{FlashDanger, "Username and password are required!"})
	default:
		h.serverError(w, r, err)
	}
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the dashboard
	if GetUserFromContext(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", "Login", CredentialsViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login.html", "Login", CredentialsViewModel{},
			Flash{FlashDanger, "Invalid form submission"})
		return
	}

	username := r.FormValue("username")
	vm := CredentialsViewModel{Username: username}

	session, err := h.auth.Login(r.Context(), username, r.FormValue("password"))
	switch {
	case err == nil:
		h.setSessionCookie(w, session)
		h.setFlash(w, FlashSuccess, "Login successful!")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	case errors.Is(err, auth.ErrUserNotFound):
		h.render(w, r, http.StatusOK, "login.html", "Login", vm, Flash{FlashDanger, "User not found!"})
	case errors.Is(err, auth.ErrInvalidPassword):
		h.render(w, r, http.StatusOK, "login.html", "Login", vm, Flash{FlashDanger, "Invalid password!"})
	case errors.Is(err, auth.ErrMissingCredentials):
		h.render(w, r, http.StatusOK, "login.html", "Login", vm,
			Flash{FlashDanger, "Username and password are required!"})
	default:
		h.serverError(w, r, err)
	}
}

// Logout handles user logout. It never fails from the user's point of view.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			applog.FromContext(r.Context()).Warn("failed to delete session", applog.FieldError, err)
		}
	}
	h.clearCookie(w, SessionCookieName)
	h.setFlash(w, FlashSuccess, "Logged out successfully!")
	http.Redirect(w, r, "/", http.StatusFound)
}
