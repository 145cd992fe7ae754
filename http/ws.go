package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"winequality/monitoring"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origins, origin)
		},
	}
}

// handlePredictStream answers every text frame with a prediction or a detail
// object. Bad frames never close the connection.
func (h *handlers) handlePredictStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		return
	}
	defer conn.Close()

	requestID := GetRequestID(r.Context())
	conn.SetReadLimit(h.maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		reply := h.streamReply(requestID, payload)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write failed", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}

func (h *handlers) streamReply(requestID string, payload []byte) any {
	req, err := h.predictor.decode(bytes.NewReader(payload))
	if err != nil {
		h.metrics.RecordFailure(transportWebSocket, monitoring.OutcomeInvalid)
		var invalid *validationError
		if errors.As(err, &invalid) {
			return invalid
		}
		return errorResponse{Detail: err.Error()}
	}

	resp, err := h.predictor.predict(req)
	if err != nil {
		h.metrics.RecordFailure(transportWebSocket, monitoring.OutcomeError)
		h.logger.Error("prediction failed", zap.String("request_id", requestID), zap.Error(err))
		return errorResponse{Detail: errPredictionFailed.Error()}
	}
	h.metrics.RecordPrediction(transportWebSocket, resp.WineQuality)
	return resp
}

// pingLoop keeps idle connections alive until done is closed.
func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
