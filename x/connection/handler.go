package connection

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wjayesh/mahilo/core"
)

type Handler interface {
	Register(c echo.Context) error
	List(c echo.Context) error
	Delete(c echo.Context) error
}

type handler struct {
	service core.ConnectionService
}

func NewHandler(service core.ConnectionService) Handler {
	return &handler{service: service}
}

type registerRequest struct {
	Name            string   `json:"name"`
	CallbackURL     string   `json:"callback_url"`
	PublicKey       string   `json:"public_key,omitempty"`
	RoutingPriority int      `json:"routing_priority,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
}

type registerResponse struct {
	core.AgentConnection
	CallbackSecret string `json:"callback_secret"`
}

func (h *handler) Register(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Connection.Handler.Register")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	var request registerRequest
	if err := c.Bind(&request); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	created, err := h.service.Register(ctx, core.AgentConnection{
		Owner:           requester,
		Name:            request.Name,
		CallbackURL:     request.CallbackURL,
		PublicKey:       request.PublicKey,
		RoutingPriority: request.RoutingPriority,
		Capabilities:    request.Capabilities,
	})
	if err != nil {
		span.RecordError(err)
		if _, ok := err.(core.ErrorInvalidCallbackTarget); ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	// the secret is shown here and never again
	return c.JSON(http.StatusCreated, echo.Map{"content": registerResponse{
		AgentConnection: created,
		CallbackSecret:  created.CallbackSecret,
	}})
}

func (h *handler) List(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Connection.Handler.List")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	conns, err := h.service.ListByOwner(ctx, requester)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"content": conns})
}

func (h *handler) Delete(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Connection.Handler.Delete")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	id := c.Param("id")
	err := h.service.Delete(ctx, id, requester)
	if err != nil {
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
