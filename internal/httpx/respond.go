package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ardiwn/go-inventory-api/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps the value in the {"data": ...} envelope.
func writeData(w http.ResponseWriter, code int, v any) {
	writeJSON(w, code, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"code": code, "message": msg})
}

// writeOrderError maps reconciliation errors to client errors with the
// message naming the offending product; anything else is a store failure.
func writeOrderError(w http.ResponseWriter, err error) {
	var notFound *orders.ProductNotFoundError
	var noStock *orders.InsufficientStockError
	if errors.As(err, &notFound) || errors.As(err, &noStock) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}
