package message

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wjayesh/mahilo/core"
)

type Handler interface {
	Send(c echo.Context) error
	Get(c echo.Context) error
	History(c echo.Context) error
}

type handler struct {
	service core.MessageService
}

func NewHandler(service core.MessageService) Handler {
	return &handler{service: service}
}

func (h *handler) Send(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Message.Handler.Send")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	requesterAgent, _ := ctx.Value(core.RequesterAgentCtxKey).(string)

	var request core.SendRequest
	if err := c.Bind(&request); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if request.Recipient == "" || request.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipient and message are required"})
	}

	result, err := h.service.Send(ctx, requester, requesterAgent, request)
	if err != nil {
		span.RecordError(err)
		switch err.(type) {
		case core.ErrorRelationshipDenied:
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		case core.ErrorPolicyRejected:
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		case core.ErrorPayloadTooLarge:
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
		case core.ErrorNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"content": result})
}

func (h *handler) Get(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Message.Handler.Get")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	id := c.Param("id")
	message, err := h.service.Get(ctx, id, requester)
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

	return c.JSON(http.StatusOK, echo.Map{"content": message})
}

func (h *handler) History(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Message.Handler.History")
	defer span.End()

	requester, ok := ctx.Value(core.RequesterIdCtxKey).(string)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}

	direction := c.QueryParam("direction")

	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		epoch, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "since must be a unix timestamp"})
		}
		since = time.Unix(epoch, 0)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be an integer"})
		}
		limit = parsed
	}

	messages, err := h.service.History(ctx, requester, direction, since, limit)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"content": messages})
}
