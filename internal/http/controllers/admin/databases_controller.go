package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	dto "github.com/dropDatabas3/authmanager/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/authmanager/internal/http/errors"
	"github.com/dropDatabas3/authmanager/internal/http/helpers"
	mw "github.com/dropDatabas3/authmanager/internal/http/middlewares"
	svc "github.com/dropDatabas3/authmanager/internal/http/services/admin"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

type DatabasesController struct {
	service svc.DatabasesService
}

func NewDatabasesController(service svc.DatabasesService) *DatabasesController {
	return &DatabasesController{service: service}
}

// List maneja GET /admin/databases?active=true
func (c *DatabasesController) List(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Create maneja POST /admin/databases
func (c *DatabasesController) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDatabaseRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.Create(r.Context(), mw.GetAdmin(r.Context()), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, res)
}

// Deactivate maneja POST /admin/databases/{id}/deactivate
func (c *DatabasesController) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Deactivate(r.Context(), mw.GetAdmin(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertSchemaMapping maneja PUT /admin/databases/{id}/schema-mapping
func (c *DatabasesController) UpsertSchemaMapping(w http.ResponseWriter, r *http.Request) {
	var req dto.SchemaMappingRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.UpsertSchemaMapping(r.Context(), mw.GetAdmin(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// BanUser maneja POST /admin/databases/{id}/bans
func (c *DatabasesController) BanUser(w http.ResponseWriter, r *http.Request) {
	var req dto.BanUserRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.BanUser(r.Context(), mw.GetAdmin(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, res)
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, svc.ErrDatabaseNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithMessage(err.Error()))
	case errors.Is(err, svc.ErrMissingName),
		errors.Is(err, svc.ErrInvalidConnectionURL),
		errors.Is(err, svc.ErrInvalidMapping),
		errors.Is(err, svc.ErrMissingUserID),
		errors.Is(err, svc.ErrInvalidBan):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithMessage(err.Error()))
	case errors.Is(err, svc.ErrAlreadyBanned):
		httperrors.WriteError(w, httperrors.ErrConflict.WithMessage(err.Error()))
	case errors.Is(err, repository.ErrConflict):
		httperrors.WriteError(w, httperrors.ErrConflict.WithCause(err))
	default:
		logger.From(r.Context()).Error("admin request failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.Internal(err))
	}
}
