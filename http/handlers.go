package http

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"winequality/monitoring"
)

//go:embed openapi.json
var openAPIDocument []byte

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Wine Quality Prediction API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function () {
      SwaggerUIBundle({ url: "/openapi.json", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`

const (
	transportHTTP      = "http"
	transportWebSocket = "ws"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type handlers struct {
	predictor    *predictor
	modelType    string
	metrics      *monitoring.Metrics
	logger       *zap.Logger
	maxBodyBytes int64
	upgrader     websocket.Upgrader
}

func (h *handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /docs", handleDocs)
	mux.HandleFunc("GET /openapi.json", handleOpenAPI)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/ws/predict", h.handlePredictStream)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusMovedPermanently)
}

func handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIDocument)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": h.modelType})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, err := h.predictor.decode(r.Body)
	if err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	resp, err := h.predictor.predict(req)
	if err != nil {
		h.metrics.RecordFailure(transportHTTP, monitoring.OutcomeError)
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: errPredictionFailed.Error()})
		return
	}

	h.metrics.RecordPrediction(transportHTTP, resp.WineQuality)
	writeJSON(w, http.StatusOK, resp)
}

// writeRequestError maps decode and validation failures to 413 or 422.
func (h *handlers) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	h.metrics.RecordFailure(transportHTTP, monitoring.OutcomeInvalid)

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "request body too large"})
		return
	}
	var invalid *validationError
	if errors.As(err, &invalid) {
		h.logger.Debug("invalid prediction request",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, invalid)
		return
	}
	h.logger.Error("request validation failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
