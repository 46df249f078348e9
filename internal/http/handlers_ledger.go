package http

import (
	"net/http"

	"moneypall/internal/core"
	"moneypall/internal/services"
)

func (s *Server) handleCreateCategory(kind core.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := NewRequestBodyParser(w, r)
		if err := p.Parse(); err != nil {
			badBody(w, r, keyDetail, err)
			return
		}

		c, err := s.ledger.CreateCategory(r.Context(), kind, p.Get("name"), p.Get("image"))
		if err != nil {
			writeError(w, r, keyDetail, err)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Payload(toCategoryResponse(c)).Write(w)
	}
}

func (s *Server) handleListCategories(kind core.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := s.ledger.ListCategories(r.Context(), kind)
		if err != nil {
			writeError(w, r, keyDetail, err)
			return
		}
		out := make([]categoryResponse, 0, len(cats))
		for _, c := range cats {
			out = append(out, toCategoryResponse(c))
		}
		NewJSONResponse().Field("data", out).Write(w)
	}
}

func (s *Server) handleCreateRecord(kind core.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := NewRequestBodyParser(w, r)
		if err := p.Parse(); err != nil {
			badBody(w, r, keyDetail, err)
			return
		}

		rec, err := s.ledger.CreateRecord(r.Context(), currentUser(r).ID, kind, services.RecordInput{
			Amount:      p.Get("amount"),
			Category:    p.Get("category"),
			Currency:    p.Get("currency"),
			Description: p.Get("description"),
			Date:        p.Get("date"),
		})
		if err != nil {
			writeError(w, r, keyDetail, err)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Payload(toRecordResponse(rec)).Write(w)
	}
}

func (s *Server) handleListRecords(kind core.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.ledger.ListRecords(r.Context(), currentUser(r).ID, kind)
		if err != nil {
			writeError(w, r, keyDetail, err)
			return
		}
		out := make([]recordResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, toRecordResponse(rec))
		}
		NewJSONResponse().Field("data", out).Write(w)
	}
}
