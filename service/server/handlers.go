package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brojonat/solagg/service/query"
)

// handleListTransactions returns a handler that lists stored transactions for one key.
// GET /transactions?pub_key=ADDRESS&day=dd/mm/yyyy&limit=N&offset=N
//
// The handler only reads the in-process store, so it answers 200 or 400.
func handleListTransactions(store query.Reader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		params := query.Params{
			Key: q.Get("pub_key"),
			Day: q.Get("day"),
		}
		if params.Key == "" {
			writeError(w, "pub_key query parameter is required", http.StatusBadRequest)
			return
		}

		var err error
		if params.Limit, err = parseNonNegative(q, "limit"); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if params.Offset, err = parseNonNegative(q, "offset"); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		txns, err := query.Transactions(store, params)
		if errors.Is(err, query.ErrInvalidDateFormat) {
			logger.DebugContext(r.Context(), "invalid day filter", "day", params.Day)
			writeErrorDetails(w, "Invalid date format", "Please use the format dd/mm/yyyy.", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		logger.DebugContext(r.Context(), "transactions listed", "pub_key", params.Key, "count", len(txns))
		writeJSON(w, txns, http.StatusOK)
	})
}

// parseNonNegative reads an optional integer query parameter. A missing
// parameter yields nil so the query defaults apply.
func parseNonNegative(q map[string][]string, name string) (*int, error) {
	values := q[name]
	if len(values) == 0 || values[0] == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(values[0])
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: must be an integer", name)
	}
	if n < 0 {
		return nil, fmt.Errorf("%s cannot be negative", name)
	}
	return &n, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}

// writeErrorDetails writes a JSON error response with a hint for the caller.
func writeErrorDetails(w http.ResponseWriter, message, details string, statusCode int) {
	writeJSON(w, map[string]string{"error": message, "details": details}, statusCode)
}
