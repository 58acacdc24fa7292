package handler

import (
	"context"
	"net/http"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/service"
	"github.com/schoolmed/schoolmed-backend/pkg/httputil"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
)

// BatchHandler handles batched lifecycle endpoints for lots and items
type BatchHandler struct {
	service *service.BatchService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.BatchService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

type batchRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

func (h *BatchHandler) run(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, ids []string) (*domain.BatchOperationResult, error)) {
	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := op(r.Context(), req.IDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// SoftDeleteLots soft-deletes a set of lots
func (h *BatchHandler) SoftDeleteLots(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.service.SoftDeleteLots)
}

// RestoreLots restores a set of soft-deleted lots
func (h *BatchHandler) RestoreLots(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.service.RestoreLots)
}

// PermanentDeleteLots irreversibly removes a set of lots
func (h *BatchHandler) PermanentDeleteLots(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.service.PermanentDeleteLots)
}

// SoftDeleteItems soft-deletes a set of stock items
func (h *BatchHandler) SoftDeleteItems(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.service.SoftDeleteItems)
}

// RestoreItems restores a set of soft-deleted stock items
func (h *BatchHandler) RestoreItems(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.service.RestoreItems)
}

// PermanentDeleteItems irreversibly removes a set of stock items
func (h *BatchHandler) PermanentDeleteItems(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.service.PermanentDeleteItems)
}
