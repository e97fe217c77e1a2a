package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"accountd/internal/account"
	"accountd/internal/config"
	"accountd/internal/geo"
	"accountd/internal/obs"
	"accountd/internal/store"
	"accountd/internal/token"
)

type stubLookup struct {
	region geo.Region
	err    error
}

func (s *stubLookup) Lookup(context.Context, string) (geo.Region, error) {
	return s.region, s.err
}

type apiClient struct {
	baseURL string
	client  *http.Client
	codec   *token.Codec
	t       *testing.T
}

type apiOption func(*config.Config, *stubLookup)

func withProductionEmbargo(region geo.Region, err error) apiOption {
	return func(cfg *config.Config, lookup *stubLookup) {
		cfg.Env = config.Production
		lookup.region = region
		lookup.err = err
	}
}

func withSSLRequired() apiOption {
	return func(cfg *config.Config, _ *stubLookup) {
		cfg.UseSSL = true
	}
}

func newTestAPI(t *testing.T, opts ...apiOption) *apiClient {
	t.Helper()

	cfg := config.Config{
		Env:                config.Test,
		Version:            "test",
		TokenSecret:        "gateway-test-secret",
		TokenLifetime:      time.Hour,
		EmbargoedContinent: "EU",
		EmbargoMessage:     "Not available in your region.",
		RateBurst:          100,
		RatePerSec:         100,
		MaxBodyBytes:       1 << 20,
	}
	lookup := &stubLookup{region: geo.Region{ContinentCode: "NA"}}
	for _, opt := range opts {
		opt(&cfg, lookup)
	}

	codec, err := token.NewCodec(cfg.TokenSecret, cfg.TokenLifetime)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	gw := store.NewInMemory()
	svc := account.NewService(gw, account.BcryptHasher{Cost: bcrypt.MinCost}, codec)
	api := New(cfg, svc, codec, lookup, gw, obs.NopReporter{})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(api.Close)

	return &apiClient{baseURL: srv.URL, client: srv.Client(), codec: codec, t: t}
}

type gatewayResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code      string `json:"code"`
			Exception struct {
				Code int    `json:"code"`
				Msg  string `json:"msg"`
				Name string `json:"name"`
			} `json:"exception"`
		} `json:"extensions"`
	} `json:"errors"`
}

func (c *apiClient) operation(op string, vars any, authToken string) (int, gatewayResponse) {
	c.t.Helper()
	body := map[string]any{"operation": op}
	if vars != nil {
		body["variables"] = vars
	}
	payload, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api", bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func (c *apiClient) signup(username, password string) authPayload {
	c.t.Helper()
	status, resp := c.operation("createAccount", map[string]any{
		"account": map[string]any{
			"username":  username,
			"password":  password,
			"firstName": "Test",
			"lastName":  "User",
		},
	}, "")
	if status != http.StatusOK || len(resp.Errors) > 0 {
		c.t.Fatalf("signup failed: status=%d errors=%+v", status, resp.Errors)
	}
	var auth authPayload
	if err := json.Unmarshal(resp.Data["createAccount"], &auth); err != nil {
		c.t.Fatalf("decode auth payload: %v", err)
	}
	return auth
}

func requireWireError(t *testing.T, resp gatewayResponse, code int, message string) {
	t.Helper()
	if len(resp.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", resp.Errors)
	}
	e := resp.Errors[0]
	if e.Extensions.Code != "INTERNAL_SERVER_ERROR" {
		t.Fatalf("outer code = %q, must stay constant", e.Extensions.Code)
	}
	if e.Extensions.Exception.Code != code {
		t.Fatalf("exception code = %d, want %d", e.Extensions.Exception.Code, code)
	}
	if message != "" && e.Message != message {
		t.Fatalf("message = %q, want %q", e.Message, message)
	}
}

func TestCreateAccountAndLogin(t *testing.T) {
	c := newTestAPI(t)

	auth := c.signup("Frank", "s3cret")
	if auth.Account.Username != "frank" {
		t.Fatalf("username = %q, want lower-cased", auth.Account.Username)
	}

	claims, err := c.codec.Verify(auth.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.AccountID != auth.Account.ID || claims.CredentialID != auth.Account.CredentialID {
		t.Fatalf("claims = %+v, account = %+v", claims, auth.Account)
	}

	status, resp := c.operation("login", map[string]any{
		"credentials": map[string]any{"username": "FRANK", "password": "s3cret"},
	}, "")
	if status != http.StatusOK || len(resp.Errors) > 0 {
		t.Fatalf("login failed: status=%d errors=%+v", status, resp.Errors)
	}
	var loginAuth authPayload
	if err := json.Unmarshal(resp.Data["login"], &loginAuth); err != nil {
		t.Fatalf("decode login payload: %v", err)
	}
	if loginAuth.Account.ID != auth.Account.ID {
		t.Fatal("login resolved a different account")
	}
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	c := newTestAPI(t)
	c.signup("grace", "pw")

	status, resp := c.operation("createAccount", map[string]any{
		"account": map[string]any{"username": "GRACE", "password": "pw2", "firstName": "G", "lastName": "H"},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("gateway failures travel with HTTP 200, got %d", status)
	}
	requireWireError(t, resp, 409, "This username is already in use.")
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	c := newTestAPI(t)
	c.signup("heidi", "right-password")

	for _, creds := range []map[string]any{
		{"username": "nobody", "password": "whatever"},
		{"username": "heidi", "password": "wrong-password"},
	} {
		status, resp := c.operation("login", map[string]any{"credentials": creds}, "")
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		requireWireError(t, resp, 400, "Unknown username or password.")
	}
}

func TestMeWithoutToken(t *testing.T) {
	c := newTestAPI(t)
	_, resp := c.operation("me", nil, "")
	requireWireError(t, resp, 401, "No authorization token was found.")
}

func TestMeWithGarbageToken(t *testing.T) {
	c := newTestAPI(t)
	_, resp := c.operation("me", nil, "not.a.token")
	requireWireError(t, resp, 401, "Your session has expired.")
}

func TestMeReturnsCurrentAccount(t *testing.T) {
	c := newTestAPI(t)
	auth := c.signup("ivan", "pw")

	status, resp := c.operation("me", nil, auth.Token)
	if status != http.StatusOK || len(resp.Errors) > 0 {
		t.Fatalf("me failed: status=%d errors=%+v", status, resp.Errors)
	}
	var acct accountPayload
	if err := json.Unmarshal(resp.Data["me"], &acct); err != nil {
		t.Fatalf("decode account payload: %v", err)
	}
	if acct.ID != auth.Account.ID || acct.Username != "ivan" {
		t.Fatalf("account = %+v", acct)
	}
}

func TestMeValidTokenForMissingAccount(t *testing.T) {
	c := newTestAPI(t)
	raw, err := c.codec.Issue("0b7e5d4f-2f2f-4a39-9d2b-6f1df6a6e0aa", "37c2f6de-51d8-45f3-bb07-6c48cd0de5c1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, resp := c.operation("me", nil, raw)
	requireWireError(t, resp, 404, "")
}

func TestEmbargoedRegionBlocksWrites(t *testing.T) {
	c := newTestAPI(t, withProductionEmbargo(geo.Region{ContinentCode: "EU"}, nil))

	for _, op := range []struct {
		name string
		vars any
	}{
		{"login", map[string]any{"credentials": map[string]any{"username": "a", "password": "b"}}},
		{"createAccount", map[string]any{"account": map[string]any{"username": "a", "password": "b"}}},
	} {
		status, resp := c.operation(op.name, op.vars, "")
		if status != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", op.name, status)
		}
		requireWireError(t, resp, 451, "Not available in your region.")
	}
}

func TestEmbargoLookupFailureIsExternalError(t *testing.T) {
	c := newTestAPI(t, withProductionEmbargo(geo.Region{}, errors.New("provider down")))

	_, resp := c.operation("login", map[string]any{
		"credentials": map[string]any{"username": "a", "password": "b"},
	}, "")
	requireWireError(t, resp, 502, "")
}

func TestEmbargoBypassedInDevelopmentLikeEnv(t *testing.T) {
	// Lookup would fail hard, but the guard never runs outside production.
	c := newTestAPI(t, func(cfg *config.Config, lookup *stubLookup) {
		cfg.Env = config.Development
		lookup.err = errors.New("should not be called")
	})
	c.signup("judy", "pw")
}

func TestUnknownOperation(t *testing.T) {
	c := newTestAPI(t)
	status, resp := c.operation("dropAllTables", nil, "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	requireWireError(t, resp, 400, "")
}

func TestPing(t *testing.T) {
	c := newTestAPI(t)
	resp, err := c.client.Get(c.baseURL + "/ping")
	if err != nil {
		t.Fatalf("get ping: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "pong" {
		t.Fatalf("body = %v", body)
	}
}

func TestUnknownRouteUses404(t *testing.T) {
	c := newTestAPI(t)
	resp, err := c.client.Get(c.baseURL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var decoded gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	requireWireError(t, decoded, 404, "Could not find the requested route.")
}

func TestRejectHTTPWhenSSLRequired(t *testing.T) {
	c := newTestAPI(t, withSSLRequired())

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	resp2, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with forwarded https", resp2.StatusCode)
	}
}

type failingGateway struct {
	store.Gateway
}

func (failingGateway) Ping(context.Context) error {
	return errors.New("dial tcp db.internal:5432: connection refused")
}

func TestReadyzHidesStoreDetail(t *testing.T) {
	cfg := config.Config{
		Env:           config.Test,
		TokenSecret:   "readyz-test-secret",
		TokenLifetime: time.Hour,
	}
	codec, err := token.NewCodec(cfg.TokenSecret, cfg.TokenLifetime)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	api := New(cfg, nil, codec, &stubLookup{}, failingGateway{}, obs.NopReporter{})
	defer api.Close()

	rr := httptest.NewRecorder()
	api.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "db.internal") {
		t.Fatalf("store detail leaked: %s", body)
	}
	var decoded map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["status"] != "not_ready" {
		t.Fatalf("body = %v", decoded)
	}
	if len(decoded) != 1 {
		t.Fatalf("unexpected extra fields: %v", decoded)
	}
}
