package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"accountd/internal/apperr"
	"accountd/internal/guard"
)

const bearerPrefix = "Bearer "

type gatewayRequest struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables"`
}

// handleGateway runs one operation per request: decode, build the request
// context, evaluate the operation's guard chain, execute, format. Domain
// failures travel in the envelope with HTTP 200; the outer status never
// signals them.
func (a *API) handleGateway(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.handleNotFound(w, r)
		return
	}

	var req gatewayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.finishError(r, w, apperr.Wrap(apperr.BadRequest, "Malformed request body.", err))
		return
	}

	handler, ok := a.ops[req.Operation]
	if !ok {
		a.finishError(r, w, apperr.New(apperr.BadRequest,
			fmt.Sprintf("Unknown operation %q.", req.Operation)))
		return
	}

	greq := a.newGuardRequest(r)
	result, err := handler(r.Context(), greq, req.Variables)
	if err != nil {
		a.finishError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{req.Operation: result},
	})
}

// newGuardRequest builds the per-request context bag: raw bearer token,
// optimistically decoded claims, and caller IP. Verification happens in the
// guards, not here.
func (a *API) newGuardRequest(r *http.Request) *guard.Request {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	raw = strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))

	return &guard.Request{
		RawToken:  raw,
		Claims:    a.codec.DecodeUnverified(raw),
		IP:        clientIP(r),
		RequestID: RequestIDFromContext(r.Context()),
	}
}

// --- operation handlers ---

func (a *API) handleLogin(ctx context.Context, req *guard.Request, vars json.RawMessage) (any, error) {
	var payload struct {
		Credentials accountCredentials `json:"credentials"`
	}
	if err := unmarshalVariables(vars, &payload); err != nil {
		return nil, err
	}
	auth, err := a.svc.Login(ctx, payload.Credentials.toInput())
	if err != nil {
		return nil, err
	}
	return newAuthPayload(auth), nil
}

func (a *API) handleCreateAccount(ctx context.Context, req *guard.Request, vars json.RawMessage) (any, error) {
	var payload struct {
		Account accountCreate `json:"account"`
	}
	if err := unmarshalVariables(vars, &payload); err != nil {
		return nil, err
	}
	auth, err := a.svc.Create(ctx, payload.Account.toInput())
	if err != nil {
		return nil, err
	}
	return newAuthPayload(auth), nil
}

func (a *API) handleMe(ctx context.Context, req *guard.Request, _ json.RawMessage) (any, error) {
	acct, err := a.svc.Get(ctx, req.Claims.AccountID)
	if err != nil {
		return nil, err
	}
	return newAccountPayload(acct), nil
}

func unmarshalVariables(vars json.RawMessage, into any) error {
	if len(vars) == 0 {
		return apperr.New(apperr.BadRequest, "Missing operation variables.")
	}
	if err := json.Unmarshal(vars, into); err != nil {
		return apperr.Wrap(apperr.BadRequest, "Malformed operation variables.", err)
	}
	return nil
}
