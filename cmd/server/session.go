package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// viewerCookieName identifies a browser that is not logged in, so its
// expand/collapse state stays its own.
const viewerCookieName = "boq_viewer"

// viewer returns the key of the outline state for r: the user for a logged-in
// session, otherwise a random id kept in a cookie that is issued on first use.
func (s *server) viewer(w http.ResponseWriter, r *http.Request) string {
	if user, ok := s.auth.User(r); ok {
		return "user:" + user
	}
	if c, err := r.Cookie(viewerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return "anon:" + id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return "anon:" + id
}

func (s *server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.User(r); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
