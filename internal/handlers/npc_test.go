package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/content"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/jwebster45206/hearth-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVillage = `
name: test village
npcs:
  - id: mira
    name: Mira
    map_id: village
    position: {x: 3, y: 3}
    sprite: mira
    friendship:
      can_befriend: true
      starting_points: 10
    dialogue:
      - id: greeting
        text: Morning!
        time_of_day_text:
          night: Bit late, isn't it?
        hidden_if_quest_started: lost_cat
        responses:
          - text: Need a hand?
            next_id: ask
          - text: Bye.
      - id: greeting
        text: Any sign of Pip?
        required_quest: lost_cat
        responses:
          - text: Still looking.
          - text: Found her!
            required_quest: lost_cat
            required_quest_stage: 2
  - id: crow
    name: Crow
    map_id: mill
    position: {x: 1, y: 1}
    sprite: crow
    dialogue:
      - id: greeting
        text: Caw.
        required_quest: lost_cat
`

func newTestNPCHandler(t *testing.T) (*NPCHandler, *state.MemoryStore) {
	t.Helper()
	b, err := content.Parse([]byte(testVillage))
	require.NoError(t, err)
	dir, err := b.BuildDirectory(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	store := state.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewNPCHandler(dir, store, store, b.StartingPoints(), logger), store
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNPCHandler_List(t *testing.T) {
	h, _ := newTestNPCHandler(t)

	rr := get(h, "/v1/npcs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var out []NPCSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 2)

	byID := map[string]NPCSummary{}
	for _, s := range out {
		byID[s.ID] = s
	}
	assert.Equal(t, "Mira", byID["mira"].Name)
	assert.Equal(t, world.Position{X: 3, Y: 3}, byID["mira"].Position)
	assert.Equal(t, world.TierStranger, byID["mira"].Tier)
	assert.Empty(t, byID["crow"].Tier, "crow cannot be befriended")
}

func TestNPCHandler_Get(t *testing.T) {
	h, store := newTestNPCHandler(t)
	_, err := store.AddFriendshipPoints(context.Background(), "mira", 30)
	require.NoError(t, err)

	rr := get(h, "/v1/npcs/mira")
	require.Equal(t, http.StatusOK, rr.Code)

	var out NPCSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "village", out.MapID)
	assert.Equal(t, world.TierAcquaintance, out.Tier)
}

func TestNPCHandler_Dialogue(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(store *state.MemoryStore)
		target        string
		wantStatus    int
		wantText      string
		wantResponses []string
	}{
		{
			name:          "default greeting",
			target:        "/v1/npcs/mira/dialogue",
			wantStatus:    http.StatusOK,
			wantText:      "Morning!",
			wantResponses: []string{"Need a hand?", "Bye."},
		},
		{
			name:          "night caption",
			target:        "/v1/npcs/mira/dialogue?node=greeting&time=night",
			wantStatus:    http.StatusOK,
			wantText:      "Bit late, isn't it?",
			wantResponses: []string{"Need a hand?", "Bye."},
		},
		{
			name: "quest started",
			setup: func(store *state.MemoryStore) {
				_ = store.StartQuest(context.Background(), "lost_cat")
			},
			target:        "/v1/npcs/mira/dialogue",
			wantStatus:    http.StatusOK,
			wantText:      "Any sign of Pip?",
			wantResponses: []string{"Still looking."},
		},
		{
			name: "quest stage unlocks response",
			setup: func(store *state.MemoryStore) {
				_ = store.StartQuest(context.Background(), "lost_cat")
				_ = store.AdvanceQuest(context.Background(), "lost_cat")
			},
			target:        "/v1/npcs/mira/dialogue",
			wantStatus:    http.StatusOK,
			wantText:      "Any sign of Pip?",
			wantResponses: []string{"Still looking.", "Found her!"},
		},
		{
			name:       "no visible node",
			target:     "/v1/npcs/crow/dialogue",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown node",
			target:     "/v1/npcs/mira/dialogue?node=farewell",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown npc",
			target:     "/v1/npcs/ghost/dialogue",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad season",
			target:     "/v1/npcs/mira/dialogue?season=monsoon",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad weather",
			target:     "/v1/npcs/mira/dialogue?weather=hail",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad time",
			target:     "/v1/npcs/mira/dialogue?time=dusk",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestNPCHandler(t)
			if tt.setup != nil {
				tt.setup(store)
			}

			rr := get(h, tt.target)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantStatus != http.StatusOK {
				var e ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
				assert.NotEmpty(t, e.Error)
				return
			}

			var preview DialoguePreview
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
			assert.Equal(t, "greeting", preview.NodeID)
			assert.Equal(t, tt.wantText, preview.Text)
			var texts []string
			for _, r := range preview.Responses {
				texts = append(texts, r.Text)
			}
			assert.Equal(t, tt.wantResponses, texts)
		})
	}
}

func TestNPCHandler_Routing(t *testing.T) {
	h, _ := newTestNPCHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/npcs/mira", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	assert.Equal(t, http.StatusNotFound, get(h, "/v1/npcs/mira/portrait").Code)
	assert.Equal(t, http.StatusOK, get(h, "/v1/npcs/").Code)
}

func TestNPCHandler_ConcurrentPreviews(t *testing.T) {
	h, _ := newTestNPCHandler(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	targets := []string{
		"/v1/npcs/mira/dialogue?node=missing",
		"/v1/npcs/crow/dialogue",
		"/v1/npcs/mira/dialogue?time=night",
		"/v1/npcs",
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				resp, err := http.Get(srv.URL + targets[(i+j)%len(targets)])
				if err != nil {
					errs <- err
					return
				}
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("request failed: %v", err)
	}
}
