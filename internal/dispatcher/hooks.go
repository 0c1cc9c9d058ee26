package dispatcher

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/taphold/internal/input/key"
)

// Standard hook priorities.
const (
	PriorityAudit  = 1000 // Runs first (pre) / last (post)
	PriorityFilter = 800  // Drop events before anything else sees them
	PriorityRecord = 500
)

// Hook is the base interface for named, prioritized hooks.
type Hook interface {
	// Name uniquely identifies the hook. Registering a second hook with
	// the same name replaces the first.
	Name() string

	// Priority orders hooks. Pre-event hooks run highest first, post-emit
	// hooks run lowest first.
	Priority() int
}

// PreEventHook is called before a raw event reaches the resolvers.
// Returning false drops the event.
type PreEventHook interface {
	Hook
	PreEvent(ev *key.Event) bool
}

// PostEmitHook is called after a resolved action has been sent to the sink.
type PostEmitHook interface {
	Hook
	PostEmit(r Resolved)
}

// HookManager manages hooks with priority ordering.
type HookManager struct {
	mu        sync.RWMutex
	preHooks  []PreEventHook
	postHooks []PostEmitHook
}

// NewHookManager creates a new hook manager.
func NewHookManager() *HookManager {
	return &HookManager{}
}

// Register adds a hook that implements either or both hook interfaces.
func (m *HookManager) Register(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pre, ok := h.(PreEventHook); ok {
		m.preHooks = replaceOrAppend(m.preHooks, pre)
		sort.SliceStable(m.preHooks, func(i, j int) bool {
			return m.preHooks[i].Priority() > m.preHooks[j].Priority()
		})
	}
	if post, ok := h.(PostEmitHook); ok {
		m.postHooks = replaceOrAppend(m.postHooks, post)
		sort.SliceStable(m.postHooks, func(i, j int) bool {
			return m.postHooks[i].Priority() < m.postHooks[j].Priority()
		})
	}
}

func replaceOrAppend[H Hook](hooks []H, h H) []H {
	for i, existing := range hooks {
		if existing.Name() == h.Name() {
			hooks[i] = h
			return hooks
		}
	}
	return append(hooks, h)
}

// Unregister removes a hook by name. Returns true if anything was removed.
func (m *HookManager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := false
	for i, h := range m.preHooks {
		if h.Name() == name {
			m.preHooks = append(m.preHooks[:i], m.preHooks[i+1:]...)
			removed = true
			break
		}
	}
	for i, h := range m.postHooks {
		if h.Name() == name {
			m.postHooks = append(m.postHooks[:i], m.postHooks[i+1:]...)
			removed = true
			break
		}
	}
	return removed
}

// RunPreEvent runs pre-event hooks in priority order.
// Returns false if any hook drops the event.
func (m *HookManager) RunPreEvent(ev *key.Event) bool {
	m.mu.RLock()
	hooks := make([]PreEventHook, len(m.preHooks))
	copy(hooks, m.preHooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		if !h.PreEvent(ev) {
			return false
		}
	}
	return true
}

// RunPostEmit runs post-emit hooks from lowest to highest priority.
func (m *HookManager) RunPostEmit(r Resolved) {
	m.mu.RLock()
	hooks := make([]PostEmitHook, len(m.postHooks))
	copy(hooks, m.postHooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		h.PostEmit(r)
	}
}

// Count returns the number of registered pre-event and post-emit hooks.
func (m *HookManager) Count() (pre, post int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.preHooks), len(m.postHooks)
}

// AuditHook logs every raw event and resolved action at trace level.
type AuditHook struct {
	log zerolog.Logger
}

// NewAuditHook creates an audit hook writing to log.
func NewAuditHook(log zerolog.Logger) *AuditHook {
	return &AuditHook{log: log}
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

// Priority implements Hook.
func (h *AuditHook) Priority() int { return PriorityAudit }

// PreEvent implements PreEventHook.
func (h *AuditHook) PreEvent(ev *key.Event) bool {
	h.log.Trace().
		Stringer("pos", ev.Pos).
		Bool("pressed", ev.Pressed).
		Int64("t_ms", ev.Time.Milliseconds()).
		Msg("event")
	return true
}

// PostEmit implements PostEmitHook.
func (h *AuditHook) PostEmit(r Resolved) {
	h.log.Trace().
		Stringer("pos", r.Pos).
		Stringer("action", r.Action).
		Bool("pressed", r.Pressed).
		Uint8("taps", r.TapCount).
		Int64("t_ms", r.Time.Milliseconds()).
		Msg("emit")
}

// FilterHook drops events from disabled key positions.
type FilterHook struct {
	mu       sync.RWMutex
	disabled map[key.Position]struct{}
}

// NewFilterHook creates a filter that drops events for the given positions.
func NewFilterHook(disabled ...key.Position) *FilterHook {
	h := &FilterHook{disabled: make(map[key.Position]struct{}, len(disabled))}
	for _, p := range disabled {
		h.disabled[p] = struct{}{}
	}
	return h
}

// Name implements Hook.
func (h *FilterHook) Name() string { return "filter" }

// Priority implements Hook.
func (h *FilterHook) Priority() int { return PriorityFilter }

// Disable drops future events for pos.
func (h *FilterHook) Disable(pos key.Position) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disabled[pos] = struct{}{}
}

// Enable lets events for pos through again.
func (h *FilterHook) Enable(pos key.Position) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.disabled, pos)
}

// PreEvent implements PreEventHook.
func (h *FilterHook) PreEvent(ev *key.Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, drop := h.disabled[ev.Pos]
	return !drop
}

// PostEmitFunc adapts a function to PostEmitHook.
type PostEmitFunc struct {
	HookName     string
	HookPriority int
	Fn           func(r Resolved)
}

// Name implements Hook.
func (f PostEmitFunc) Name() string { return f.HookName }

// Priority implements Hook.
func (f PostEmitFunc) Priority() int { return f.HookPriority }

// PostEmit implements PostEmitHook.
func (f PostEmitFunc) PostEmit(r Resolved) { f.Fn(r) }
