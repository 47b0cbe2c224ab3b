package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"studentperf/metrics"
	"studentperf/ml"
	"studentperf/pipeline"
)

const ServiceName = "Student Performance Prediction API"

// Version is overridden at build time with -ldflags.
var Version = "1.0.0"

const (
	detailModelUnavailable = "Model is not available. Please contact administrator."
	detailBadBody          = "could not read request body"
	detailBodyTooLarge     = "request body too large"
)

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type errorResponse struct {
	Detail string           `json:"detail"`
	Errors []*ml.FieldError `json:"errors,omitempty"`
}

type handlers struct {
	pipeline *pipeline.Pipeline
	log      *zap.SugaredLogger
}

// RegisterHandlers 注册预测服务路由
func RegisterHandlers(mux *http.ServeMux, service *pipeline.Pipeline, log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &handlers{pipeline: service, log: log}
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.Handle("GET /metrics", metrics.Handler())
}

func (h *handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	status := "active"
	if !h.pipeline.ModelLoaded() {
		status = "model not loaded"
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Message: ServiceName,
		Version: Version,
		Status:  status,
		Endpoints: map[string]string{
			"predict": "/predict",
			"health":  "/health",
			"stats":   "/stats",
			"metrics": "/metrics",
		},
	})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", ModelLoaded: h.pipeline.ModelLoaded()}
	if !resp.ModelLoaded {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Stats())
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: detailBodyTooLarge})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detailBadBody})
		return
	}

	result, err := h.pipeline.HandlePredict(body)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ml.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: verr.Error(), Errors: verr.Errors})
	case errors.Is(err, pipeline.ErrModelUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: detailModelUnavailable})
	default:
		h.log.Errorw("prediction failed", "request_id", GetRequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "An error occurred during prediction: " + err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
