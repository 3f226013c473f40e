package auth_test

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type httpFixture struct {
	*accountFixture
	app *fiber.App
}

func newHTTPFixture(t *testing.T, serviceGuards ...auth.ValidationListener) *httpFixture {
	t.Helper()
	f := newAccountFixture(t)
	cfg := newTestConfig()

	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: auth.NewErrorHandler(&captureLogger{}),
	})

	controller := auth.NewUserController(f.service,
		auth.WithControllerLogger(&captureLogger{}),
		auth.WithGateways(
			auth.NewServiceGateway(f.tokens, cfg, serviceGuards...),
			auth.NewUserGateway(f.tokens, cfg),
		),
	)
	auth.RegisterUserRoutes(app, controller)

	return &httpFixture{accountFixture: f, app: app}
}

func (f *httpFixture) serviceToken(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.IssueServiceToken()
	require.NoError(t, err)
	return token
}

func (f *httpFixture) userToken(t *testing.T, id int64, role auth.UserRole) string {
	t.Helper()
	token, err := f.tokens.IssueUserToken(id, role)
	require.NoError(t, err)
	return token
}

type requestOpts struct {
	body         any
	serviceToken string
	userToken    string
}

func (f *httpFixture) do(t *testing.T, method, path string, opts requestOpts) (int, []byte) {
	t.Helper()

	var body io.Reader
	if opts.body != nil {
		raw, err := json.Marshal(opts.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if opts.body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if opts.serviceToken != "" {
		req.Header.Set(auth.DefaultServiceTokenHeader, "Bearer "+opts.serviceToken)
	}
	if opts.userToken != "" {
		req.Header.Set(auth.DefaultUserTokenHeader, "Bearer "+opts.userToken)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

type errorBody struct {
	Error auth.ErrorPayload `json:"error"`
}

func decodeError(t *testing.T, raw []byte) auth.ErrorPayload {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body.Error
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}
