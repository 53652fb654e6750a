package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"imagestudio/internal/domain"
)

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":     message,
		"timestamp": domain.FormatTimestamp(time.Now()),
	})
}
