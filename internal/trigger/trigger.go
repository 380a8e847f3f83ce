// Package trigger models the invocation boundary: a tagged context built
// once from the inbound request and consumed uniformly by the dispatcher.
package trigger

import (
	"encoding/json"
	"strings"

	"birdscout-go/internal/types"
)

type Kind int

const (
	// KindHTTP is a direct call; no event metadata is present.
	KindHTTP Kind = iota
	// KindEvent is a store-originated notification carrying an event type.
	KindEvent
)

// Context is one invocation's trigger. Key is an optional scoped credential
// forwarded from the request headers.
type Context struct {
	Kind      Kind
	EventType string
	Key       string
	Body      []byte
}

// New builds the context from the raw trigger metadata. A non-empty event
// type marks an event-originated invocation; everything else is a direct
// HTTP call.
func New(eventType, key string, body []byte) Context {
	c := Context{Kind: KindHTTP, Key: key, Body: body}
	if strings.TrimSpace(eventType) != "" {
		c.Kind = KindEvent
		c.EventType = eventType
	}
	return c
}

// Decode unmarshals the payload into out after lenient normalization: a
// JSON object passes through, a JSON string is parsed again, and anything
// absent or malformed becomes an empty object. A bad body must never fail
// the invocation by itself.
func (c Context) Decode(out any) error {
	return json.Unmarshal(c.normalized(), out)
}

// Action returns the explicit action discriminator, if any.
func (c Context) Action() string {
	var p struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(c.normalized(), &p)
	return p.Action
}

func (c Context) normalized() []byte {
	body := c.Body
	if len(body) == 0 {
		return []byte("{}")
	}
	// The body may be a double-encoded JSON string.
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		body = []byte(s)
	}
	if !json.Valid(body) {
		return []byte("{}")
	}
	return body
}

// IsUpdateEvent reports whether this invocation was caused by a document
// update, as opposed to a creation or a direct call. The store's event
// grammar ends update notifications with a ".update" segment.
func (c Context) IsUpdateEvent() bool {
	return c.Kind == KindEvent && strings.HasSuffix(c.EventType, ".update")
}

// ShouldSkip is the loop guard. The processor's own status writes re-trigger
// the update pathway; without this rule every invocation would spawn the
// next. Only update-triggered invocations of a still-QUEUED record proceed.
// An absent status on the inbound document counts as QUEUED.
func (c Context) ShouldSkip(status types.Status) bool {
	if !c.IsUpdateEvent() {
		return false
	}
	return status != "" && status != types.StatusQueued
}
