package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/examprep/internal/model"
)

// ModelInfo is one selectable model.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderInfo is one provider entry of the settings catalog.
type ProviderInfo struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	HelpLink string      `json:"helpLink"`
	Models   []ModelInfo `json:"models"`
}

// Catalog lists the providers and models offered on the settings view.
var Catalog = []ProviderInfo{
	{
		ID:       "gemini",
		Label:    "Google Gemini",
		HelpLink: "https://aistudio.google.com/app/apikey",
		Models: []ModelInfo{
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash (Default)"},
			{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
		},
	},
	{
		ID:       "groq",
		Label:    "Groq (High Speed)",
		HelpLink: "https://console.groq.com/keys",
		Models: []ModelInfo{
			{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B (Latest)"},
			{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B (Fast)"},
		},
	},
	{
		ID:       "ollama",
		Label:    "Ollama (Requires Local App)",
		HelpLink: "https://ollama.com",
		Models: []ModelInfo{
			{ID: "llama3.2", Name: "Llama 3.2 (Local)"},
			{ID: "deepseek-r1", Name: "DeepSeek R1 (Local)"},
			{ID: "mistral", Name: "Mistral"},
		},
	},
}

// providerForModel finds the catalog provider offering modelID.
func providerForModel(modelID string) (string, bool) {
	for _, p := range Catalog {
		for _, m := range p.Models {
			if m.ID == modelID {
				return p.ID, true
			}
		}
	}
	return "", false
}

// settings returns the stored selection of the request's device, or the
// defaults when nothing usable is stored.
func (h *Handler) settings(r *http.Request) model.Settings {
	device := model.DeviceFromContext(r.Context())
	if device == "" {
		return model.DefaultSettings()
	}
	s, err := h.store.GetSettings(device)
	if err != nil {
		slog.Warn("failed to read settings, using defaults", "error", err)
		return model.DefaultSettings()
	}
	return s
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": h.settings(r),
	})
}

type settingsRequest struct {
	Model string `json:"model" validate:"required"`
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	provider, ok := providerForModel(req.Model)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown model: "+req.Model, "")
		return
	}

	s := model.Settings{Provider: provider, Model: req.Model}
	if err := h.store.SaveSettings(model.DeviceFromContext(r.Context()), s); err != nil {
		slog.Error("failed to save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	slog.Info("settings saved", "provider", s.Provider, "model", s.Model)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": s})
}

func (h *Handler) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "providers": Catalog})
}
