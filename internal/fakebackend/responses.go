package fakebackend

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jrsteele09/taskflow-client/oauthmodel"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, map[string]any{"message": message, "data": data})
}

func writePage(w http.ResponseWriter, message string, data any, p oauthmodel.Pagination) {
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "data": data, "pagination": p})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeValidation(w http.ResponseWriter, fields ...oauthmodel.FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": fields})
}

func missingField(loc ...any) oauthmodel.FieldError {
	return oauthmodel.FieldError{Loc: loc, Msg: "Field required", Type: "missing"}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeValidation(w, oauthmodel.FieldError{Loc: []any{"body"}, Msg: "Invalid JSON body", Type: "json_invalid"})
		return false
	}
	return true
}

func pageParams(r *http.Request) (page, limit int) {
	page, limit = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) ([]T, oauthmodel.Pagination) {
	total := len(items)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := min(start+limit, total)
	return items[start:end], oauthmodel.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
