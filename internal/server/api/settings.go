// Package api provides HTTP API handlers for Motion Masters.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/motionmasters/internal/detector"
)

// Settings reads and applies estimator options.
type Settings interface {
	PoseOptions() detector.PoseOptions
	HandOptions() detector.HandOptions
	ConfigurePose(opts detector.PoseOptions) error
	ConfigureHands(opts detector.HandOptions) error
}

// SettingsHandler handles HTTP requests for estimator settings.
type SettingsHandler struct {
	settings Settings
	logger   *zap.SugaredLogger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings Settings, logger *zap.SugaredLogger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SettingsHandler{settings: settings, logger: logger}
}

type settingsResponse struct {
	Pose  detector.PoseOptions `json:"pose"`
	Hands detector.HandOptions `json:"hands"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP routes requests.
// Expected paths: /api/settings, /api/settings/pose or /api/settings/hands
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/settings")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{
			Pose:  h.settings.PoseOptions(),
			Hands: h.settings.HandOptions(),
		})

	case "pose":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.settings.PoseOptions())
		case http.MethodPut:
			h.updatePose(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case "hands":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.settings.HandOptions())
		case http.MethodPut:
			h.updateHands(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	default:
		writeError(w, http.StatusNotFound, "Unknown settings group")
	}
}

// updatePose handles PUT /api/settings/pose. Fields missing from the body
// keep their current values.
func (h *SettingsHandler) updatePose(w http.ResponseWriter, r *http.Request) {
	opts := h.settings.PoseOptions()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.ConfigurePose(opts); err != nil {
		h.logger.Errorf("Failed to apply pose settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to apply pose settings")
		return
	}

	h.logger.Infof("Pose settings updated: %+v", opts)
	writeJSON(w, http.StatusOK, opts)
}

// updateHands handles PUT /api/settings/hands.
func (h *SettingsHandler) updateHands(w http.ResponseWriter, r *http.Request) {
	opts := h.settings.HandOptions()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.ConfigureHands(opts); err != nil {
		h.logger.Errorf("Failed to apply hand settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to apply hand settings")
		return
	}

	h.logger.Infof("Hand settings updated: %+v", opts)
	writeJSON(w, http.StatusOK, opts)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
