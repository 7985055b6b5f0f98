package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/byteness/hrflow/approval"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/request"
	"github.com/byteness/hrflow/workflow"
)

// Handler serves approval page views and approve/reject actions.
type Handler struct {
	// Service executes workflow operations. If nil, it is built on the first
	// request with LoadService.
	Service *workflow.Service

	// LoadService builds the Service. If nil, LoadServiceFromEnv is used.
	LoadService func(ctx context.Context) (*workflow.Service, error)

	mu sync.Mutex
}

// NewHandler creates a new approval handler.
// If svc is omitted, configuration will be loaded from environment on first request.
func NewHandler(svc ...*workflow.Service) *Handler {
	if len(svc) > 0 && svc[0] != nil {
		return &Handler{Service: svc[0]}
	}
	return &Handler{}
}

func (h *Handler) service(ctx context.Context) (*workflow.Service, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Service != nil {
		return h.Service, nil
	}
	load := h.LoadService
	if load == nil {
		load = LoadServiceFromEnv
	}
	svc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	h.Service = svc
	return svc, nil
}

// View handles GET /requests/{type}/{id}?approver=...
func (h *Handler) View(ctx context.Context, reqType request.RequestType, id string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	svc, err := h.service(ctx)
	if err != nil {
		return configErrorResponse(err)
	}

	v, err := svc.View(ctx, reqType, id, req.QueryStringParameters["approver"])
	if err != nil {
		return errorResponseFor(err)
	}

	return jsonResponse(http.StatusOK, &ViewResponse{
		Request:    v.Request,
		Approver:   v.Principal,
		Actionable: v.Actionable,
		Reason:     v.Reason,
		Policy:     v.Policy,
		HRContact:  v.HRContact,
	})
}

// Act handles POST /requests/{type}/{id}/{approve|reject}.
// The approver comes from the JSON body, falling back to the approver query
// parameter carried by the link.
func (h *Handler) Act(ctx context.Context, reqType request.RequestType, id string, action approval.Action, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := parseActRequest(req)
	if err != nil {
		if err == ErrBodyTooLarge {
			return errorResponse(http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
		}
		return errorResponse(http.StatusBadRequest, hrerrors.ErrCodeInvalidInput, fmt.Sprintf("Invalid request body: %v", err))
	}
	if body.Approver == "" {
		body.Approver = req.QueryStringParameters["approver"]
	}

	svc, err := h.service(ctx)
	if err != nil {
		return configErrorResponse(err)
	}

	outcome, err := svc.Act(ctx, workflow.ActInput{
		Type:       reqType,
		RequestID:  id,
		ApproverID: body.Approver,
		Action:     action,
		Remarks:    body.Remarks,
	})
	if err != nil {
		return errorResponseFor(err)
	}

	log.Printf("ACT: type=%s id=%s approver=%q %s", reqType, id, body.Approver, outcome.Summary)

	return jsonResponse(http.StatusOK, &ActResponse{
		Request:    outcome.Request,
		Previous:   outcome.Transition.From,
		Summary:    outcome.Summary,
		FastPath:   outcome.Transition.FastPath,
		LogUpdated: outcome.LogUpdated,
		ActedAt:    outcome.Request.UpdatedAt,
	})
}

func parseActRequest(req events.APIGatewayV2HTTPRequest) (*ActRequest, error) {
	raw := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 body: %w", err)
		}
		raw = string(decoded)
	}
	if len(raw) > MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	body := &ActRequest{}
	if strings.TrimSpace(raw) == "" {
		return body, nil
	}
	if err := json.Unmarshal([]byte(raw), body); err != nil {
		return nil, err
	}
	return body, nil
}

// StatusForCode maps an error code to an HTTP status.
func StatusForCode(code string) int {
	switch code {
	case hrerrors.ErrCodeRequestNotFound, hrerrors.ErrCodePrincipalNotFound:
		return http.StatusNotFound
	case hrerrors.ErrCodeUnauthorized:
		return http.StatusForbidden
	case hrerrors.ErrCodeInvalidState, hrerrors.ErrCodeConflict:
		return http.StatusConflict
	case hrerrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case hrerrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorResponseFor converts a workflow error into an API response.
func errorResponseFor(err error) (events.APIGatewayV2HTTPResponse, error) {
	he, ok := hrerrors.IsHRFlowError(err)
	if !ok {
		log.Printf("ERROR: %v", err)
		return errorResponse(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}

	status := StatusForCode(he.Code())
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s: %v", he.Code(), err)
	}

	resp, _ := jsonResponse(status, &ErrorResponseBody{
		Message:    he.Error(),
		Code:       he.Code(),
		Suggestion: he.Suggestion(),
		Retryable:  hrerrors.IsRetryable(he),
	})
	if status == http.StatusTooManyRequests {
		if d, err := time.ParseDuration(he.Context()["retry_after"]); err == nil {
			resp.Headers["Retry-After"] = strconv.Itoa(int(math.Ceil(d.Seconds())))
		}
	}
	return resp, nil
}

func configErrorResponse(err error) (events.APIGatewayV2HTTPResponse, error) {
	log.Printf("ERROR: failed to load configuration: %v", err)
	return errorResponse(http.StatusInternalServerError, "CONFIG_ERROR",
		"Failed to load configuration: "+err.Error())
}

// errorResponse creates an error response with the given status and code.
func errorResponse(statusCode int, code, message string) (events.APIGatewayV2HTTPResponse, error) {
	return jsonResponse(statusCode, &ErrorResponseBody{
		Code:    code,
		Message: message,
	})
}

// ErrorResponse creates an error response (exported for main.go).
func ErrorResponse(statusCode int, code, message string) (events.APIGatewayV2HTTPResponse, error) {
	return errorResponse(statusCode, code, message)
}

func jsonResponse(statusCode int, v any) (events.APIGatewayV2HTTPResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("failed to marshal response: %w", err)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":  "application/json; charset=utf-8",
			"Cache-Control": "no-store",
		},
		Body: string(body),
	}, nil
}
