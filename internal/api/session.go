package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// sessionCookie names the cookie that identifies a participant session.
const sessionCookie = "session_id"

type ctxKey int

const sessionIDKey ctxKey = iota

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// withSession resolves the participant session for a request: it reads or
// issues the session cookie, enforces the per-session rate limit, creates
// the account on first contact, and sweeps any pending limit orders before
// the handler runs. The session ID is placed on the request context.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.resolveSession(w, r)

		if s.rateLimitPerMin > 0 && !s.limiter(id).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, id)

		if _, err := s.ledger.EnsureAccount(ctx, id); err != nil {
			s.log.Error("ensuring account", "session", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Resting limit orders fill when the session next touches the API;
		// a sweep failure is logged but never blocks the request.
		if _, err := s.ledger.MatchPendingOrders(ctx, id); err != nil {
			s.log.Error("matching pending orders", "session", id, "error", err)
		}

		next(w, r.WithContext(ctx))
	}
}

func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
