package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/hearth-engine/pkg/actor"
	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type NPCSummary struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	MapID    string               `json:"map_id"`
	Position world.Position       `json:"position"`
	State    string               `json:"state,omitempty"`
	Sprite   string               `json:"sprite"`
	Tier     world.FriendshipTier `json:"friendship_tier,omitempty"`
}

type ResponsePreview struct {
	Text   string `json:"text"`
	NextID string `json:"next_id,omitempty"`
}

// DialoguePreview is the node an NPC would show right now, with the world
// context it was resolved against.
type DialoguePreview struct {
	NPCID     string            `json:"npc_id"`
	NodeID    string            `json:"node_id"`
	Text      string            `json:"text"`
	Responses []ResponsePreview `json:"responses"`
	Context   *world.Context    `json:"context"`
}

// NPCHandler serves read-only views of the loaded NPCs for content authors:
//
//	GET /v1/npcs
//	GET /v1/npcs/{id}
//	GET /v1/npcs/{id}/dialogue?node=greeting&season=autumn&time=night&weather=rain
type NPCHandler struct {
	npcs     *actor.Directory
	store    state.Store
	globals  state.GlobalEvents
	seeds    map[string]int
	resolver *dialogue.Resolver
	log      *slog.Logger
}

func NewNPCHandler(npcs *actor.Directory, store state.Store, globals state.GlobalEvents, seeds map[string]int, log *slog.Logger) *NPCHandler {
	return &NPCHandler{
		npcs:     npcs,
		store:    store,
		globals:  globals,
		seeds:    seeds,
		resolver: dialogue.NewResolver(log),
		log:      log,
	}
}

func (h *NPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/npcs"), "/")
	if path == "" {
		h.handleList(w, r)
		return
	}

	parts := strings.Split(path, "/")
	npc, ok := h.npcs.Get(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "NPC not found")
		return
	}
	switch {
	case len(parts) == 1:
		h.handleGet(w, r, npc)
	case len(parts) == 2 && parts[1] == "dialogue":
		h.handleDialogue(w, r, npc)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *NPCHandler) handleList(w http.ResponseWriter, r *http.Request) {
	view, err := state.Snapshot(r.Context(), h.store, h.globals, state.Environment{}, h.seeds)
	if err != nil {
		h.log.Error("Failed to read save state", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read save state")
		return
	}
	out := make([]NPCSummary, 0, h.npcs.Len())
	for _, npc := range h.npcs.All() {
		out = append(out, summarize(npc, view))
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

func (h *NPCHandler) handleGet(w http.ResponseWriter, r *http.Request, npc *actor.NPC) {
	view, err := state.Snapshot(r.Context(), h.store, h.globals, state.Environment{}, h.seeds)
	if err != nil {
		h.log.Error("Failed to read save state", "error", err, "npc_id", npc.ID)
		writeError(w, http.StatusInternalServerError, "Failed to read save state")
		return
	}
	writeJSON(w, h.log, http.StatusOK, summarize(npc, view))
}

func (h *NPCHandler) handleDialogue(w http.ResponseWriter, r *http.Request, npc *actor.NPC) {
	env, err := parseEnvironment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	nodeID := r.URL.Query().Get("node")
	if nodeID == "" {
		nodeID = dialogue.GreetingID
	}

	view, err := state.Snapshot(r.Context(), h.store, h.globals, env, h.seeds)
	if err != nil {
		h.log.Error("Failed to read save state", "error", err, "npc_id", npc.ID)
		writeError(w, http.StatusInternalServerError, "Failed to read save state")
		return
	}

	node := h.resolver.ResolveActiveNode(npc, nodeID, view)
	if node == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No visible %q node for %s", nodeID, npc.ID))
		return
	}

	preview := DialoguePreview{
		NPCID:     npc.ID,
		NodeID:    node.ID,
		Text:      dialogue.RenderNodeText(*node, view),
		Responses: []ResponsePreview{},
		Context:   view,
	}
	for _, resp := range dialogue.FilterResponses(*node, view, npc.ID) {
		preview.Responses = append(preview.Responses, ResponsePreview{Text: resp.Text, NextID: resp.NextID})
	}
	writeJSON(w, h.log, http.StatusOK, preview)
}

func summarize(npc *actor.NPC, view *world.Context) NPCSummary {
	s := NPCSummary{
		ID:       npc.ID,
		Name:     npc.Name,
		MapID:    npc.MapID,
		Position: npc.Position(),
		Sprite:   npc.CurrentSprite(),
	}
	if m := npc.Machine(); m != nil {
		s.State = m.CurrentState()
	}
	if npc.CanBefriend() {
		s.Tier = view.GetFriendshipTier(npc.ID)
	}
	return s
}

// parseEnvironment reads season, time and weather from the query string,
// defaulting to a clear spring day.
func parseEnvironment(r *http.Request) (state.Environment, error) {
	q := r.URL.Query()
	env := state.Environment{
		Season:    world.SeasonSpring,
		TimeOfDay: world.TimeDay,
		Weather:   world.WeatherClear,
	}
	if v := q.Get("season"); v != "" {
		env.Season = world.Season(v)
		if !env.Season.Valid() {
			return env, fmt.Errorf("unknown season %q", v)
		}
	}
	if v := q.Get("time"); v != "" {
		env.TimeOfDay = world.TimeOfDay(v)
		if !env.TimeOfDay.Valid() {
			return env, fmt.Errorf("unknown time of day %q", v)
		}
	}
	if v := q.Get("weather"); v != "" {
		env.Weather = world.Weather(v)
		if !env.Weather.Valid() {
			return env, fmt.Errorf("unknown weather %q", v)
		}
	}
	return env, nil
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
