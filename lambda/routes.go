package lambda

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/request"
)

// Router dispatches API Gateway requests to appropriate handlers based on path.
// Supports:
//   - GET  /requests/{type}/{id}?approver=...  -> approval page view
//   - POST /requests/{type}/{id}/approve       -> approve
//   - POST /requests/{type}/{id}/reject        -> reject
//
// {type} is a request type slug such as "leave" or "gate-pass".
type Router struct {
	handler *Handler
}

// NewRouter creates a new Router with the given handler.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Route handles an API Gateway v2 HTTP request and routes to appropriate handler.
func (r *Router) Route(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	path := strings.Trim(req.RawPath, "/")
	parts := strings.Split(path, "/")
	if len(parts) < 3 || len(parts) > 4 || parts[0] != "requests" {
		return errorResponse(http.StatusNotFound, "NOT_FOUND", "Unknown path: /"+path)
	}

	reqType, err := request.ParseRequestType(parts[1])
	if err != nil {
		return errorResponse(http.StatusNotFound, "NOT_FOUND", err.Error())
	}
	id, err := url.PathUnescape(parts[2])
	if err != nil {
		return errorResponse(http.StatusBadRequest, "INVALID_INPUT", "Invalid request id encoding")
	}

	method := req.RequestContext.HTTP.Method
	if len(parts) == 3 {
		if method != http.MethodGet && method != "" {
			return methodNotAllowed(http.MethodGet)
		}
		return r.handler.View(ctx, reqType, id, req)
	}

	action, err := approval.ParseAction(parts[3])
	if err != nil {
		return errorResponse(http.StatusNotFound, "NOT_FOUND", "Unknown action: "+parts[3])
	}
	if method != http.MethodPost {
		return methodNotAllowed(http.MethodPost)
	}
	return r.handler.Act(ctx, reqType, id, action, req)
}

func methodNotAllowed(allowed string) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := errorResponse(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Use "+allowed)
	if err == nil {
		resp.Headers["Allow"] = allowed
	}
	return resp, err
}
