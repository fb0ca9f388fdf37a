package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
}

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub()

	msgs, unsubscribe := h.Subscribe("p1")
	assert.Equal(t, 1, h.Subscribers("p1"))

	h.Publish("p1", event{Stage: "tts_synthesis", Percent: 0.1})
	h.Publish("p2", event{Stage: "other", Percent: 0.5})

	select {
	case data := <-msgs:
		var e event
		require.NoError(t, json.Unmarshal(data, &e))
		assert.Equal(t, "tts_synthesis", e.Stage)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Subscribers("p1"))
}

func TestHub_ReplaysLast(t *testing.T) {
	h := NewHub()
	h.Publish("p1", event{Stage: "audio_mixing", Percent: 0.75})

	msgs, unsubscribe := h.Subscribe("p1")
	defer unsubscribe()

	data := <-msgs
	assert.Contains(t, string(data), "audio_mixing")

	h.Forget("p1")
	late, unsubscribeLate := h.Subscribe("p1")
	defer unsubscribeLate()
	select {
	case <-late:
		t.Fatal("forgotten progress replayed")
	default:
	}
}

func TestHub_ServeWS(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "p1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Subscribers("p1") == 1 }, time.Second, 10*time.Millisecond)
	h.Publish("p1", event{Stage: "timeline_generation", Percent: 0.25})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var e event
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "timeline_generation", e.Stage)
	assert.Equal(t, 0.25, e.Percent)
}
