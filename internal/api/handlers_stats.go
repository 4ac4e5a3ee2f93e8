package api

import "net/http"

func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		jsonError(w, "model stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"embed":  s.cfg.EmbedProvider + ":" + s.cfg.EmbedModel,
		"rerank": s.cfg.RerankProvider,
		"stats":  s.metrics.Snapshot(),
	})
}
