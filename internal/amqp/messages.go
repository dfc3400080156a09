package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledgerview/internal/core"
)

// Routing keys on the topic exchange.
const (
	RoutingTenantSelected = "tenant.selected"
	RoutingRecordCreated  = "record.created"
	RoutingListFailed     = "list.failed"
)

// Event is the envelope for every message. Origin identifies the publishing
// process so a consumer can skip its own events.
type Event struct {
	Type      string    `json:"type"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`

	WorkspaceID string `json:"workspace_id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	TenantName  string `json:"tenant_name,omitempty"`

	Kind      core.Kind `json:"kind,omitempty"`
	ScopeRule string    `json:"scope_rule,omitempty"`
	ScopeID   string    `json:"scope_id,omitempty"`
	RecordID  string    `json:"record_id,omitempty"`

	Message string `json:"message,omitempty"`
}

// NewTenantSelected announces that a workspace picked (or cleared) a tenant.
func NewTenantSelected(workspaceID string, t core.Tenant) *Event {
	return &Event{
		Type:        RoutingTenantSelected,
		Timestamp:   time.Now(),
		WorkspaceID: workspaceID,
		TenantID:    t.ID,
		TenantName:  t.Name,
	}
}

// NewRecordCreated announces a new record in the given scope.
func NewRecordCreated(r core.Record) *Event {
	scope := r.Scope()
	return &Event{
		Type:      RoutingRecordCreated,
		Timestamp: time.Now(),
		TenantID:  r.TenantID,
		Kind:      r.Kind,
		ScopeRule: scope.Rule.String(),
		ScopeID:   scope.ID,
		RecordID:  r.ID,
	}
}

// NewListFailed carries a list failure message.
func NewListFailed(message string) *Event {
	return &Event{
		Type:      RoutingListFailed,
		Timestamp: time.Now(),
		Message:   message,
	}
}

// Tenant returns the tenant carried by a tenant.selected event.
func (e *Event) Tenant() core.Tenant {
	return core.Tenant{ID: e.TenantID, Name: e.TenantName}
}

// Scope returns the scope carried by a record.created event.
func (e *Event) Scope() (core.Scope, error) {
	if !e.Kind.IsValid() {
		return core.Scope{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, e.Kind)
	}
	rule := e.Kind.ScopeRule()
	if e.ScopeRule != rule.String() || e.ScopeID == "" {
		return core.Scope{}, fmt.Errorf("%w: %s:%s", core.ErrMissingScope, e.ScopeRule, e.ScopeID)
	}
	return core.Scope{Rule: rule, ID: e.ScopeID}, nil
}

// ToJSON converts the message to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, fmt.Errorf("event without type")
	}
	return &e, nil
}
