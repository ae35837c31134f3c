package middleware

import (
	"net/http"

	"github.com/qcom/otpd/internal/service"
	"github.com/qcom/otpd/internal/session"
	"github.com/sirupsen/logrus"
)

// SessionMiddleware resolves the caller's session from a signed cookie and
// attaches it to the request context. Callers without a valid cookie get a
// new session.
type SessionMiddleware struct {
	tokens     *service.SessionTokenService
	store      session.Store
	cookieName string
	logger     *logrus.Logger
}

func NewSessionMiddleware(tokens *service.SessionTokenService, store session.Store, cookieName string, logger *logrus.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:     tokens,
		store:      store,
		cookieName: cookieName,
		logger:     logger,
	}
}

func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			claims, err := m.tokens.Verify(cookie.Value)
			if err != nil {
				m.logger.WithError(err).Debug("Session cookie rejected")
			} else {
				sessionID = claims.SessionID
			}
		}

		if sessionID == "" {
			token, id, err := m.tokens.Issue()
			if err != nil {
				m.respondError(w)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.tokens.Lifetime().Seconds()),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			sessionID = id
		}

		s, err := m.store.Open(r.Context(), sessionID)
		if err != nil {
			m.logger.WithError(err).Error("Failed to open session")
			m.respondError(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

func (m *SessionMiddleware) respondError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"Session unavailable"}`))
}
