// Package auth receives the requester identity propagated by the gateway.
// API-key verification itself happens upstream; this process trusts the
// mahilo-requester-* headers set by the gateway.
package auth

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wjayesh/mahilo/core"
)

var tracer = otel.Tracer("auth")

func ReceiveGatewayAuthPropagation(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.ReceiveGatewayAuthPropagation")
		defer span.End()

		reqIdHeader := c.Request().Header.Get(core.RequesterIdHeader)
		reqAgentHeader := c.Request().Header.Get(core.RequesterAgentHeader)

		if reqIdHeader != "" {
			ctx = context.WithValue(ctx, core.RequesterIdCtxKey, reqIdHeader)
			span.SetAttributes(attribute.String("RequesterId", reqIdHeader))
		}

		if reqAgentHeader != "" {
			ctx = context.WithValue(ctx, core.RequesterAgentCtxKey, reqAgentHeader)
			span.SetAttributes(attribute.String("RequesterAgent", reqAgentHeader))
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
