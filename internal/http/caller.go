package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"ledgerview/internal/core"
	"ledgerview/internal/log"
	"ledgerview/internal/workspace"
)

const sessionCookie = "ledgerview_sid"

type workspaceKeyType struct{}

// withWorkspace resolves the caller to a workspace. A caller named by a
// trusted proxy gets a workspace keyed by identity; anyone else gets an
// anonymous workspace keyed by a session cookie and no identity.
func (s *Server) withWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ws *workspace.Workspace
		if id := s.proxy.Identity(r); id != "" {
			ws = s.registry.Get("user:" + id)
			ws.Identify(core.Identity{ID: id})
		} else {
			ws = s.registry.Get("anon:" + anonymousSession(w, r))
		}

		ctx := context.WithValue(r.Context(), workspaceKeyType{}, ws)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With("workspace", ws.ID()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func anonymousSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func workspaceFrom(ctx context.Context) *workspace.Workspace {
	ws, _ := ctx.Value(workspaceKeyType{}).(*workspace.Workspace)
	return ws
}

// workspaceKey buckets rate limiting per caller.
func workspaceKey(r *http.Request) string {
	if ws := workspaceFrom(r.Context()); ws != nil {
		return ws.ID()
	}
	return r.RemoteAddr
}
