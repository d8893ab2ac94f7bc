package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/session"
	"github.com/pavelanni/examprep/internal/store"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	stateCookieName   = "oauth_state"
	deviceCookieName  = "device_id"
	csrfHeaderName    = "X-CSRF-Token"

	stateCookieTTL = 10 * time.Minute
)

type tokenCtxKey struct{}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return r, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(csrfHeaderName, token)
	return r.WithContext(model.ContextWithCSRFToken(r.Context(), token)), true
}

// csrfMiddleware issues a token cookie on safe requests and, on mutating
// ones, requires the X-CSRF-Token header (or csrf_token form value) to
// match the cookie before rotating it.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			r, ok := h.setCSRFCookie(w, r)
			if ok {
				next.ServeHTTP(w, r)
			}
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			writeError(w, http.StatusForbidden, "csrf token missing", "")
			return
		}

		token := r.Header.Get(csrfHeaderName)
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if token == "" {
			slog.Warn("CSRF request token missing")
			writeError(w, http.StatusForbidden, "csrf token missing", "")
			return
		}

		if len(token) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			writeError(w, http.StatusForbidden, "invalid csrf token", "")
			return
		}

		r, ok := h.setCSRFCookie(w, r)
		if ok {
			next.ServeHTTP(w, r)
		}
	})
}

// requireAuth checks the session cookie, decodes the stored token and
// attaches both to the request context. A token record that no longer
// parses ends the session.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := h.signedIn(w, r)
		if !ok {
			h.unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// signedIn resolves the session cookie to a stored token and returns the
// request with session, token and device attached.
func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return r, false
	}

	authSess, err := h.store.GetAuthSession(cookie.Value)
	if err != nil {
		slog.Error("failed to get auth session", "error", err)
		return r, false
	}
	if authSess == nil {
		return r, false
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(authSess.TokenJSON), &tok); err != nil || tok.AccessToken == "" {
		slog.Warn("discarding unreadable token record", "error", err)
		_ = h.store.DeleteAuthSession(authSess.ID)
		h.sessions.Drop(authSess.ID)
		h.clearSessionCookie(w)
		return r, false
	}

	ctx := model.ContextWithSession(r.Context(), authSess.ID)
	ctx = context.WithValue(ctx, tokenCtxKey{}, &tok)
	ctx = model.ContextWithDevice(ctx, h.device(w, r))
	return r.WithContext(ctx), true
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "SignInRequired"), model.ViewLogin)
}

// device returns the browser identity that scopes stored settings,
// issuing one on first sight.
func (h *Handler) device(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(deviceCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    id,
		Path:     h.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// state returns the working set of the authenticated session.
func (h *Handler) state(r *http.Request) *session.State {
	return h.sessions.Get(model.SessionFromContext(r.Context()))
}

// courseClient builds a Classroom/Drive client for the request's session.
// Refreshed tokens are written back to the session record.
func (h *Handler) courseClient(r *http.Request) (CourseClient, error) {
	tok, _ := r.Context().Value(tokenCtxKey{}).(*oauth2.Token)
	if tok == nil {
		return nil, model.ErrAuth
	}
	id := model.SessionFromContext(r.Context())
	src := &persistingSource{
		src:   h.oauth.TokenSource(context.WithoutCancel(r.Context()), tok),
		store: h.store,
		id:    id,
		last:  tok.AccessToken,
	}
	return h.clients(r.Context(), oauth2.ReuseTokenSource(tok, src))
}

// persistingSource stores every newly minted token under the session ID.
type persistingSource struct {
	src   oauth2.TokenSource
	store *store.Store
	id    string

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken
	data, err := json.Marshal(tok)
	if err == nil {
		err = p.store.UpdateAuthToken(p.id, string(data))
	}
	if err != nil {
		slog.Warn("failed to persist refreshed token", "error", err)
	}
	return tok, nil
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate OAuth state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     h.cookiePath(),
		MaxAge:   int(stateCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if msg := r.URL.Query().Get("error"); msg != "" {
		slog.Warn("sign-in denied", "error", msg)
		writeError(w, http.StatusUnauthorized, msg, model.ViewLogin)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || cookie.Value == "" || len(state) != len(cookie.Value) ||
		subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) != 1 {
		slog.Warn("OAuth state mismatch")
		writeError(w, http.StatusBadRequest, "invalid oauth state", model.ViewLogin)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   h.cookiePath(),
		MaxAge: -1,
	})

	tok, err := h.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("OAuth code exchange failed", "error", err)
		writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "SignInRequired"), model.ViewLogin)
		return
	}
	data, err := json.Marshal(tok)
	if err != nil {
		slog.Error("failed to encode token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	id, err := h.store.CreateAuthSession(string(data))
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	h.sessions.Create(id)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user signed in")
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := model.SessionFromContext(r.Context())
	if err := h.store.DeleteAuthSession(id); err != nil {
		slog.Error("failed to delete auth session", "error", err)
	}
	h.sessions.Drop(id)
	h.clearSessionCookie(w)
	if isFormPost(r) {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "view": model.ViewLogin})
}

func isFormPost(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}
