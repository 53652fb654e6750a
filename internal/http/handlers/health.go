package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status        string `json:"status"`
	APIConfigured bool   `json:"apiConfigured"`
	Model         string `json:"model,omitempty"`
	TextModel     string `json:"textModel,omitempty"`
	Timestamp     string `json:"timestamp"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{
		Status:        "ok",
		APIConfigured: a.Config.APIConfigured(),
		Model:         a.Config.GeminiModel,
		TextModel:     a.Config.GeminiTextModel,
		Timestamp:     a.timestamp(),
	})
}
