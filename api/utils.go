package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"marketflow/validation"
)

// getIntParam retrieves an integer query parameter with default value and optional range validation
func getIntParam(r *http.Request, key string, defaultVal int, minVal, maxVal *int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}

	if minVal != nil && val < *minVal {
		return defaultVal
	}
	if maxVal != nil && val > *maxVal {
		return defaultVal
	}

	return val
}

// respondWithJSON writes the payload as a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		log.Printf("API Error [%d]: %s - %v", code, message, err)
	} else {
		log.Printf("API Error [%d]: %s", code, message)
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondQueryError maps a query-layer error onto the right status code:
// validation failures become 400 with the validator's message, anything else
// becomes an opaque 500.
func respondQueryError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		respondWithError(w, http.StatusBadRequest, verr.Error(), nil)
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error", err)
}
