package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/manifest/internal/domain/model"
)

const maxFieldBodyBytes = 64 << 10

type nameRequest struct {
	Name string `json:"name"`
}

type cabinRequest struct {
	Cabin *string `json:"cabin"`
}

// NormalizeHandler parses single fields on request.
type NormalizeHandler struct {
	deps NormalizeDependencies
}

// NewNormalizeHandler creates a new normalize handler.
func NewNormalizeHandler(deps NormalizeDependencies) *NormalizeHandler {
	return &NormalizeHandler{deps: deps}
}

// HandleName handles POST /normalize/name requests.
func (h *NormalizeHandler) HandleName(w http.ResponseWriter, r *http.Request) {
	const op = "api.normalize_name"
	var req nameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFieldBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := h.deps.ParseName(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, model.ErrorKind(err), Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleCabin handles POST /normalize/cabin requests. A null or missing
// cabin yields the empty descriptor.
func (h *NormalizeHandler) HandleCabin(w http.ResponseWriter, r *http.Request) {
	const op = "api.normalize_cabin"
	var req cabinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFieldBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	d, err := h.deps.ParseCabin(r.Context(), req.Cabin)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, model.ErrorKind(err), Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}
