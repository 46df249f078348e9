package http

import "net/http"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	NewJSONResponse().Payload(d).Write(w)
}
