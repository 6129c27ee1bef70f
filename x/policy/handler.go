package policy

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wjayesh/mahilo/core"
)

type Handler interface {
	Upsert(c echo.Context) error
	List(c echo.Context) error
	Delete(c echo.Context) error
}

type handler struct {
	service core.PolicyService
}

func NewHandler(service core.PolicyService) Handler {
	return &handler{service: service}
}

type upsertRequest struct {
	ID         string  `json:"id,omitempty"`
	Scope      string  `json:"scope"`
	TargetID   *string `json:"target_id,omitempty"`
	PolicyType string  `json:"policy_type"`
	Content    string  `json:"content"`
	Priority   int     `json:"priority,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

func (h *handler) Upsert(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Policy.Handler.Upsert")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	var request upsertRequest
	if err := c.Bind(&request); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	enabled := true
	if request.Enabled != nil {
		enabled = *request.Enabled
	}

	created, err := h.service.Upsert(ctx, core.Policy{
		ID:         request.ID,
		Owner:      requester,
		Scope:      request.Scope,
		TargetID:   request.TargetID,
		PolicyType: request.PolicyType,
		Content:    request.Content,
		Priority:   request.Priority,
		Enabled:    enabled,
	})
	if err != nil {
		span.RecordError(err)
		switch err.(type) {
		case core.ErrorPermissionDenied:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Permission Denied"})
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"content": created})
}

func (h *handler) List(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Policy.Handler.List")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	policies, err := h.service.ListByOwner(ctx, requester)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"content": policies})
}

func (h *handler) Delete(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Policy.Handler.Delete")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	id := c.Param("id")
	if err := h.service.Delete(ctx, id, requester); err != nil {
		span.RecordError(err)
		switch err.(type) {
		case core.ErrorNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
		case core.ErrorPermissionDenied:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Permission Denied"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
