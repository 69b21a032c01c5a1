package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/manifest/internal/app"
	"github.com/okian/manifest/internal/adapters/repository"
	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/types"
)

const (
	maxIngestBodyBytes = 8 << 20
	defaultPageLimit   = 20
)

// rowRequest mirrors one manifest row in POST /passengers. Survived is a
// pointer so an absent value can be told apart from 0.
type rowRequest struct {
	PassengerID     int      `json:"passenger_id"`
	Survived        *int     `json:"survived"`
	PassengerClass  int      `json:"passenger_class"`
	Name            string   `json:"name"`
	Sex             string   `json:"sex"`
	Age             *float64 `json:"age"`
	SiblingsSpouses int      `json:"siblings_spouses"`
	ParentChildren  int      `json:"parent_children"`
	Ticket          string   `json:"ticket"`
	Fare            *float64 `json:"fare"`
	Cabin           string   `json:"cabin"`
	Embarked        string   `json:"embarked"`
}

func (req rowRequest) validate() error { //nolint:gocritic // hugeParam: request values
	if req.PassengerID < 1 {
		return errors.New("missing passenger_id")
	}
	return nil
}

func (req rowRequest) toRow() model.RawPassenger { //nolint:gocritic // hugeParam: request values
	survived := model.SurvivedUnknown
	if req.Survived != nil {
		survived = *req.Survived
	}
	return model.RawPassenger{
		PassengerID:     req.PassengerID,
		Survived:        survived,
		PassengerClass:  req.PassengerClass,
		Name:            req.Name,
		Sex:             req.Sex,
		Age:             req.Age,
		SiblingsSpouses: req.SiblingsSpouses,
		ParentChildren:  req.ParentChildren,
		Ticket:          req.Ticket,
		Fare:            req.Fare,
		Cabin:           req.Cabin,
		Embarked:        req.Embarked,
	}
}

// decodeRows accepts either one row object or an array of rows.
func decodeRows(body []byte) ([]rowRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	if trimmed[0] == '[' {
		var reqs []rowRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}
	var req rowRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []rowRequest{req}, nil
}

type ingestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	types.IngestReport
}

type pageResponse struct {
	Offset     int               `json:"offset"`
	Limit      int               `json:"limit"`
	Passengers []model.Passenger `json:"passengers"`
}

// PassengersHandler handles ingestion and read requests for passengers.
type PassengersHandler struct {
	deps     PassengerDependencies
	maxLimit int
}

// NewPassengersHandler creates a new passengers handler.
func NewPassengersHandler(deps PassengerDependencies, maxLimit int) *PassengersHandler {
	return &PassengersHandler{deps: deps, maxLimit: maxLimit}
}

// HandlePost handles POST /passengers requests. Rows the queue could not
// take are reported with 429 so the client can resend them.
func (h *PassengersHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_passengers"
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	reqs, err := decodeRows(buf.Bytes())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rows := make([]model.RawPassenger, 0, len(reqs))
	for i, req := range reqs {
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("row %d: %w", i, err)))
			return
		}
		rows = append(rows, req.toRow())
	}

	report := h.deps.Ingest(r.Context(), rows)
	if report.Dropped > 0 {
		err := WrapKind(op, ErrBackpressure, fmt.Errorf("%d of %d rows dropped", report.Dropped, report.Received))
		writeJSON(w, http.StatusTooManyRequests, ingestResponse{
			Status:       ErrBackpressure.Error(),
			Message:      err.Error(),
			IngestReport: report,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{Status: "accepted", IngestReport: report})
}

// HandleList handles GET /passengers?offset=N&limit=M requests.
func (h *PassengersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_passengers"
	q := r.URL.Query()

	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit, err := queryInt(q.Get("limit"), min(defaultPageLimit, h.maxLimit))
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitExceeded))
		return
	}

	page, err := h.deps.Passengers(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Offset: offset, Limit: limit, Passengers: page})
}

// HandleGet handles GET /passengers/{id} requests.
func (h *PassengersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_passenger"
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.Passenger(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRejections handles GET /rejections requests.
func (h *PassengersHandler) HandleRejections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Rejections(r.Context()))
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
