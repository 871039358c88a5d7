package dialogue

import (
	"log/slog"
	"sync"

	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
)

// View is everything resolution and rendering read from the world.
type View interface {
	conditionals.WorldView
	TextView
}

// Table groups an NPC's nodes by id into ordered rule lists. Declared order
// within an id is the resolution priority.
type Table struct {
	order []string
	rules map[string][]Node
}

// NewTable groups nodes by id, keeping declared order.
func NewTable(nodes []Node) *Table {
	t := &Table{rules: make(map[string][]Node)}
	for _, n := range nodes {
		if _, ok := t.rules[n.ID]; !ok {
			t.order = append(t.order, n.ID)
		}
		t.rules[n.ID] = append(t.rules[n.ID], n)
	}
	return t
}

// Rules returns the ordered candidates for id.
func (t *Table) Rules(id string) []Node {
	if t == nil {
		return nil
	}
	return t.rules[id]
}

// Has reports whether any node declares id.
func (t *Table) Has(id string) bool {
	return len(t.Rules(id)) > 0
}

// IDs returns the node ids in first-declared order.
func (t *Table) IDs() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Nodes returns every node in declaration order grouped by id.
func (t *Table) Nodes() []Node {
	var out []Node
	for _, id := range t.IDs() {
		out = append(out, t.rules[id]...)
	}
	return out
}

// Source is anything that owns a dialogue table, normally an NPC.
type Source interface {
	NPCID() string
	DialogueTable() *Table
}

// Resolver picks active nodes. It is stateless apart from remembering which
// content problems it already logged, and safe for concurrent use.
type Resolver struct {
	logger *slog.Logger

	mu     sync.Mutex
	warned map[string]bool
}

// NewResolver creates a resolver. A nil logger uses slog.Default.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger, warned: make(map[string]bool)}
}

// ResolveActiveNode returns the first node with nodeID that is visible for
// view, or nil when the id is unknown or no candidate is visible.
func (r *Resolver) ResolveActiveNode(src Source, nodeID string, view View) *Node {
	npcID := src.NPCID()
	rules := src.DialogueTable().Rules(nodeID)
	if len(rules) == 0 {
		r.warnOnce("unknown:"+npcID+":"+nodeID, "dialogue references unknown node",
			"npc_id", npcID, "node_id", nodeID)
		return nil
	}

	var active *Node
	visible := 0
	for i := range rules {
		if !IsNodeVisible(rules[i], view, npcID) {
			continue
		}
		visible++
		if active == nil {
			n := rules[i]
			active = &n
		}
	}
	if visible > 1 {
		r.warnOnce("ambiguous:"+npcID+":"+nodeID, "multiple dialogue nodes visible, using first",
			"npc_id", npcID, "node_id", nodeID, "visible", visible)
	}
	return active
}

func (r *Resolver) warnOnce(key, msg string, args ...any) {
	r.mu.Lock()
	seen := r.warned[key]
	r.warned[key] = true
	r.mu.Unlock()
	if seen {
		return
	}
	r.logger.Warn(msg, args...)
}
