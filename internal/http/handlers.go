package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/listview"
	"ledgerview/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["store"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	checks["workspaces"] = map[string]interface{}{
		"active": s.registry.Size(),
		"status": "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	proxyMetrics := s.proxy.GetMetrics()
	var rejected, limited int64
	if s.rateLimiter != nil {
		m := s.rateLimiter.GetMetrics()
		rejected, limited = m.Rejected, m.ClientCount
	}

	var b strings.Builder
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(&b, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_failed_total", "counter", "HTTP requests answered with a 5xx status", traceMetrics.FailedRequests)
	metric("workspaces_active", "gauge", "Live caller workspaces", s.registry.Size())
	metric("refresh_rate_limited_total", "counter", "Refreshes rejected by the rate limiter", rejected)
	metric("refresh_rate_limit_clients", "gauge", "Currently tracked rate limit keys", limited)
	metric("untrusted_identity_attempts_total", "counter", "Identity headers ignored from untrusted peers", proxyMetrics.UntrustedIdentityAttempts)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))

	NewHTMXResponse().
		Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8").
		BodyString(b.String()).
		Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+core.KindInvoice.Slug(), http.StatusFound)
}

type navItem struct {
	Slug   string
	Title  string
	Active bool
}

type pageData struct {
	Nav           []navItem
	Identity      string
	Tenants       []core.Tenant
	CurrentTenant string
	List          listview.View
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupList(r)
	if !ok {
		NotFoundError("Page not found").Write(w)
		return
	}
	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}

	ctx := r.Context()
	ws := workspaceFrom(ctx)
	data := pageData{List: c.View(s.formatter)}
	for _, def := range listview.Definitions() {
		data.Nav = append(data.Nav, navItem{
			Slug:   def.Kind.Slug(),
			Title:  def.Title,
			Active: def.Kind == data.List.Kind,
		})
	}
	if id, ok := ws.Session().CurrentIdentity(); ok {
		data.Identity = id.ID
	}
	if t, ok := ws.Tenants().CurrentTenant(); ok {
		data.CurrentTenant = t.ID
	}
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Tenant list error", "error", err)
	}
	data.Tenants = tenants

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Page template execution failed",
			"error", err,
			"template", "layout.html",
			log.FieldComponent, log.ComponentTemplate)
		InternalServerError("Could not render page").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// handleListPartial renders the list's current state. While the list is
// loading the fragment polls itself.
func (s *Server) handleListPartial(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupList(r)
	if !ok {
		NotFoundError("Unknown list").Write(w)
		return
	}
	s.writeList(w, r, c.View(s.formatter), NewHTMXResponse())
}

// handleRefresh re-fetches the list and waits for the result. The fetch
// outlives a disconnecting client so the list still settles.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupList(r)
	if !ok {
		NotFoundError("Unknown list").Write(w)
		return
	}
	ctx := context.WithoutCancel(r.Context())
	if _, applied := c.Refresh(ctx); !applied {
		log.FromContext(ctx).DebugContext(ctx, "Refresh superseded by a newer load", log.FieldKind, c.Definition().Kind)
	}
	v := c.View(s.formatter)
	s.writeList(w, r, v, NewHTMXResponse().TriggerListRefreshed(v.Slug, v.Generation))
}

func (s *Server) writeList(w http.ResponseWriter, r *http.Request, v listview.View, resp *HTMXResponseBuilder) {
	ctx := r.Context()
	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "list", v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "List template execution failed",
			"error", err,
			log.FieldKind, v.Kind,
			log.FieldComponent, log.ComponentTemplate)
		InternalServerError("Could not render list").Write(w)
		return
	}
	if msgs := workspaceFrom(ctx).Inbox().Drain(); len(msgs) > 0 {
		resp.TriggerErrorNotification(strings.Join(msgs, "\n"))
	}
	resp.BodyHTML(buf.String()).Write(w)
}

// handleSelectTenant switches the caller's active company. An empty
// tenant_id clears the selection. Only signed-in callers may select one.
func (s *Server) handleSelectTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request").Write(w)
		return
	}
	ws := workspaceFrom(ctx)
	id := sanitizeInput(r.PostForm.Get("tenant_id"))

	if _, ok := ws.Session().CurrentIdentity(); !ok && id != "" {
		log.FromContext(ctx).WarnContext(ctx, "Anonymous tenant selection refused", log.FieldTenantID, id)
		ErrorResponse(http.StatusUnauthorized, listview.MessageNoIdentity).
			TriggerErrorNotification(listview.MessageNoIdentity).
			Write(w)
		return
	}

	if id == "" {
		ws.Tenants().Clear()
		log.FromContext(ctx).InfoContext(ctx, "Tenant cleared")
		s.respondTenantChanged(w, r, "", "Company cleared")
		return
	}

	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Tenant list error", "error", err)
		InternalServerError("Could not load companies").Write(w)
		return
	}
	var selected core.Tenant
	found := false
	for _, t := range tenants {
		if t.ID == id {
			selected, found = t, true
			break
		}
	}
	if !found {
		UnprocessableEntityError("Unknown company").Write(w)
		return
	}

	ws.Tenants().Select(selected)
	log.FromContext(ctx).InfoContext(ctx, "Tenant selected", log.FieldTenantID, selected.ID)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, amqp.NewTenantSelected(ws.ID(), selected)); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Failed to publish tenant selection", "error", err)
		}
	}
	s.respondTenantChanged(w, r, selected.ID, "Now showing "+selected.Name)
}

func (s *Server) respondTenantChanged(w http.ResponseWriter, r *http.Request, tenantID, message string) {
	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().
			Status(http.StatusNoContent).
			TriggerTenantChanged(tenantID).
			TriggerSuccessNotification(message).
			Write(w)
		return
	}
	back := "/"
	if kind, err := core.ParseKind(r.PostForm.Get("return_to")); err == nil {
		back = "/" + kind.Slug()
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

type apiCell struct {
	Text     string `json:"text"`
	Style    string `json:"style"`
	Category string `json:"category,omitempty"`
}

type apiRow struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Cells    []apiCell `json:"cells"`
}

type apiList struct {
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Phase      string   `json:"phase"`
	NoContext  bool     `json:"no_context,omitempty"`
	Message    string   `json:"message,omitempty"`
	Headers    []string `json:"headers"`
	Rows       []apiRow `json:"rows"`
	Generation uint64   `json:"generation"`
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupList(r)
	if !ok {
		NewHTMXResponse().Status(http.StatusNotFound).JSON(map[string]string{"error": "unknown list"}).Write(w)
		return
	}
	v := c.View(s.formatter)
	out := apiList{
		Kind:       string(v.Kind),
		Title:      v.Title,
		Phase:      v.Phase.String(),
		NoContext:  v.NoContext,
		Message:    v.Message,
		Headers:    make([]string, len(v.Headers)),
		Rows:       make([]apiRow, len(v.Rows)),
		Generation: v.Generation,
	}
	for i, h := range v.Headers {
		out.Headers[i] = h.Text
	}
	for i, row := range v.Rows {
		ar := apiRow{ID: row.ID, Category: string(row.Category), Cells: make([]apiCell, len(row.Cells))}
		for j, cell := range row.Cells {
			ar.Cells[j] = apiCell{Text: cell.Text, Style: cell.Style.String(), Category: string(cell.Category)}
		}
		out.Rows[i] = ar
	}
	NewHTMXResponse().JSON(out).Write(w)
}

func (s *Server) lookupList(r *http.Request) (*listview.Controller, bool) {
	kind, err := core.ParseKind(chi.URLParam(r, "slug"))
	if err != nil {
		return nil, false
	}
	return workspaceFrom(r.Context()).List(kind)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
