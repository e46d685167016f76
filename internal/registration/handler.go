package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-signup/internal/identity"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
)

// OrphanLister lists identities recorded as orphaned.
type OrphanLister interface {
	List(ctx context.Context, limit int) ([]entity.OrphanIdentity, error)
}

// Handler exposes the signup endpoint.
type Handler struct {
	svc     *Service
	orphans OrphanLister
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, orphans OrphanLister, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, orphans: orphans, logger: logger}
}

// maxBodyBytes caps a registration payload; real requests are a few hundred bytes.
const maxBodyBytes = 16 << 10

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req entity.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid registration payload", "err", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	if _, err := h.svc.Register(r.Context(), &req); err != nil {
		status, body := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warnw("registration failed", "kind", body.Kind, "err", err)
		} else {
			h.logger.Debugw("registration rejected", "kind", body.Kind, "err", err)
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// Orphans lists identities whose profile could not be created.
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.orphans.List(r.Context(), limit)
	if err != nil {
		h.logger.Warnw("list orphans failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "list failed"})
		return
	}
	if rows == nil {
		rows = []entity.OrphanIdentity{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func errorStatus(err error) (int, errorResponse) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Kind: KindValidation, Fields: verr.Fields}
	}
	switch Kind(err) {
	case KindIdentity:
		switch {
		case errors.Is(err, identity.ErrDuplicateEmail):
			return http.StatusConflict, errorResponse{Error: "account already exists", Kind: KindIdentity}
		case errors.Is(err, identity.ErrWeakCredential):
			return http.StatusBadRequest, errorResponse{Error: "password rejected by identity provider", Kind: KindIdentity}
		case errors.Is(err, identity.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
			return http.StatusServiceUnavailable, errorResponse{Error: "identity provider unavailable", Kind: KindIdentity}
		default:
			return http.StatusBadGateway, errorResponse{Error: "identity creation failed", Kind: KindIdentity}
		}
	case KindLinking:
		return http.StatusInternalServerError, errorResponse{Error: "profile could not be created", Kind: KindLinking}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "registration failed"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
