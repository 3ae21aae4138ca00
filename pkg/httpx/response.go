package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes v as the response body with status code. Every JSON
// response the gateway writes carries a token or a decision about one, so
// none of them are cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response as not storable by clients or proxies.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
