package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/go-chi/chi/v5"
)

type RecordsRepository interface {
	RecordsByFile(ctx context.Context, sourceFile string, limit, offset uint64) ([]*domain.CanonicalRecord, int, error)
}

type IngestionsRepository interface {
	Ingestions(ctx context.Context) ([]*domain.Ingestion, error)
}

type IngestHandler struct {
	recordsRepository    RecordsRepository
	ingestionsRepository IngestionsRepository
}

func NewIngestHandler(recordsRepository RecordsRepository, ingestionsRepository IngestionsRepository) *IngestHandler {
	return &IngestHandler{
		recordsRepository:    recordsRepository,
		ingestionsRepository: ingestionsRepository,
	}
}

type GetIngestionsResponse struct {
	Ingestions []*domain.Ingestion `json:"ingestions"`
}

func (h *IngestHandler) GetIngestions(w http.ResponseWriter, r *http.Request) {
	ingestions, err := h.ingestionsRepository.Ingestions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(GetIngestionsResponse{Ingestions: ingestions})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Write(data)
}

type GetRecordsByFileResponse struct {
	Records    []*domain.CanonicalRecord `json:"records"`
	Pagination Pagination                `json:"pagination"`
}

func (h *IngestHandler) GetRecordsByFile(w http.ResponseWriter, r *http.Request) {
	sourceFile := chi.URLParam(r, "source_file")

	page, limit, err := h.parsePagination(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offset := (page - 1) * limit

	records, total, err := h.recordsRepository.RecordsByFile(r.Context(), sourceFile, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(GetRecordsByFileResponse{
		Records: records,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + int(limit) - 1) / int(limit),
		},
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Write(data)
}

func (h *IngestHandler) parsePagination(r *http.Request) (page uint64, limit uint64, err error) {
	page, limit = 1, 10

	if p := r.URL.Query().Get("page"); p != "" {
		page, err = strconv.ParseUint(p, 10, 64)
		if err != nil || page == 0 {
			return 0, 0, errors.New("invalid page")
		}
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err = strconv.ParseUint(l, 10, 64)
		if err != nil || limit < 1 || limit > 100 {
			return 0, 0, errors.New("invalid limit, must be in [1;100]")
		}
	}

	return page, limit, nil
}
