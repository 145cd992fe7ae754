package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPredictStream(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/predict"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, frame string) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(payload, &reply))
	return reply
}

func TestPredictStream(t *testing.T) {
	model := &recordingModel{score: 6.2}
	srv, _ := newTestServer(t, model)
	conn := dialPredictStream(t, srv)

	reply := exchange(t, conn, encodeSample(t, redWine))
	assert.Equal(t, "R J Hari", reply["name"])
	assert.Equal(t, "2022BCS0125", reply["roll_no"])
	assert.Equal(t, 6.0, reply["wine_quality"])

	// invalid frames are answered and the stream stays usable
	reply = exchange(t, conn, `{"alcohol": 9.4}`)
	details, ok := reply["detail"].([]any)
	require.True(t, ok, "expected a detail list, got %v", reply)
	assert.Len(t, details, 10)

	reply = exchange(t, conn, `not json`)
	assert.Contains(t, reply, "detail")

	reply = exchange(t, conn, encodeSample(t, redWine))
	assert.Equal(t, 6.0, reply["wine_quality"])
	assert.Equal(t, 2, model.callCount())
}

func TestPredictStreamModelFailure(t *testing.T) {
	srv, _ := newTestServer(t, &recordingModel{err: assert.AnError})
	conn := dialPredictStream(t, srv)

	reply := exchange(t, conn, encodeSample(t, redWine))
	assert.Equal(t, "prediction failed", reply["detail"])
}
