package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	mu   sync.Mutex
	cmds []Command
	err  error
}

func (s *stubSubmitter) Submit(cmd Command) <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)
	reply := make(chan error, 1)
	reply <- s.err
	return reply
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	web := NewWebServer(0, &stubSubmitter{})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	web.Observe(Snapshot{Time: t0, Status: "PIPBOY", Trigger: 0.5, PrimaryRole: "Left"})

	resp, err = http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "PIPBOY", got.Status)
	assert.Equal(t, 0.5, got.Trigger)
	assert.Equal(t, "Left", got.PrimaryRole)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

// readUntil reads responses until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) WSResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var resp WSResponse
		require.NoError(t, conn.ReadJSON(&resp))
		if resp.Type == typ {
			return resp
		}
	}
}

func TestWebSocketCommands(t *testing.T) {
	t.Parallel()

	sub := &stubSubmitter{}
	web := NewWebServer(0, sub)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	hello := readUntil(t, conn, "hello")
	assert.NotEmpty(t, hello.Session)

	require.NoError(t, conn.WriteJSON(Command{Action: ActionSetTarget, Slot: "pipboy"}))
	ack := readUntil(t, conn, "ack")
	assert.Equal(t, ActionSetTarget, ack.Action)

	sub.mu.Lock()
	sub.err = errors.New("no secondary")
	sub.mu.Unlock()
	require.NoError(t, conn.WriteJSON(Command{Action: ActionSetTolerance, PosTolerance: 0.2, RotTolerance: 30}))
	failed := readUntil(t, conn, "error")
	assert.Equal(t, "no secondary", failed.Message)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	require.Len(t, sub.cmds, 2)
	assert.Equal(t, "pipboy", sub.cmds[0].Slot)
	assert.Equal(t, 0.2, sub.cmds[1].PosTolerance)
	assert.Equal(t, 30.0, sub.cmds[1].RotTolerance)
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	t.Parallel()

	web := NewWebServer(0, &stubSubmitter{})
	web.push = 5 * time.Millisecond
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()
	readUntil(t, conn, "hello")

	web.Observe(Snapshot{Time: t0, Status: "HOLDING 3", Payload: "1.00_2.00"})
	resp := readUntil(t, conn, "snapshot")
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, "HOLDING 3", resp.Snapshot.Status)
	assert.Equal(t, "1.00_2.00", resp.Snapshot.Payload)
}
