package handlers

import (
	"net/http"

	"finanzas-server/src/db"
	"finanzas-server/src/logger"
	"finanzas-server/src/middleware"

	"github.com/go-chi/chi/v5"
)

// ClearCache drops one read-cache namespace, or every namespace for "all".
func ClearCache(cache *db.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "cache_name")
		namespaces := []string{name}
		if name == "all" {
			namespaces = []string{db.TransactionCache, db.AccountCache, db.DashboardCache}
		}
		for _, ns := range namespaces {
			if !cache.Clear(ns) {
				writeError(w, http.StatusNotFound, "unknown cache "+ns)
				return
			}
		}
		logger.FromContext(r.Context()).Info().
			Str("admin_id", middleware.UserIDFromContext(r.Context())).
			Strs("caches", namespaces).
			Msg("cache cleared")
		writeJSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
	}
}
