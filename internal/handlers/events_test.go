package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/hearth-engine/internal/services/events"
	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && ev.name != "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	srv := httptest.NewServer(NewEventsHandler(rdb, logger))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/saves/slot1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, reader).name)

	b := events.NewBroadcaster(rdb, "slot1", logger)
	require.NoError(t, b.NotifyAction(ctx, dialogue.Action{
		ConversationID: uuid.New(),
		NPCID:          "mira",
		NodeID:         "lost_cat_ask",
		Kind:           dialogue.ActionStartQuest,
		Target:         "lost_cat",
	}))
	ev := readEvent(t, reader)
	assert.Equal(t, string(events.EventTypeDialogueAction), ev.name)
	var payload events.Event
	require.NoError(t, json.Unmarshal([]byte(ev.data), &payload))
	assert.Equal(t, "slot1", payload.SaveID)
	assert.Equal(t, "mira", payload.Data["npc_id"])

	// other saves' actions are not forwarded, shared events are
	other := events.NewBroadcaster(rdb, "slot2", logger)
	require.NoError(t, other.NotifyAction(ctx, dialogue.Action{NPCID: "bram", Kind: dialogue.ActionStartQuest, Target: "x"}))
	require.NoError(t, other.PublishGlobalEvent(ctx, "gift_given", 4))
	ev = readEvent(t, reader)
	assert.Equal(t, string(events.EventTypeGlobalEvent), ev.name)
	require.NoError(t, json.Unmarshal([]byte(ev.data), &payload))
	assert.Equal(t, float64(4), payload.Data["count"])
}

func TestEventsHandler_BadRequests(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewEventsHandler(nil, logger)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "post", method: http.MethodPost, target: "/v1/events/saves/slot1", wantStatus: http.StatusMethodNotAllowed},
		{name: "missing save", method: http.MethodGet, target: "/v1/events/saves", wantStatus: http.StatusBadRequest},
		{name: "wrong resource", method: http.MethodGet, target: "/v1/events/games/slot1", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
