// internal/transport/http_test.go
package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontdesk/internal/catalog"
	"frontdesk/internal/library"
	"frontdesk/internal/protocol"
	"frontdesk/internal/session"
	"frontdesk/internal/timeclock"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	books, err := catalog.ParseBooks(strings.NewReader(
		`9780441013593,"Dune",{Frank Herbert},Ace,2005-08-02,617` + "\n"))
	require.NoError(t, err)

	base := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	clock := timeclock.New(timeclock.WithBase(func() time.Time { return base }))
	lib, err := library.New(catalog.NewBookstore(books), library.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, lib.EnsureEmployee(context.Background(), "admin", "secret"))

	srv := protocol.NewServer(session.NewProxy(lib, nil), nil)
	return NewHandler(srv, nil).Router()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestCommandsAnswerOneLinePerRequest(t *testing.T) {
	h := newRouter(t)

	rec := post(t, h, "connect;")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connect,1;\n", rec.Body.String())

	rec = post(t, h, "1,login,admin,secret;\n1,datetime;\n1,search,Dune;")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{
		"1,login,success;",
		"1,datetime,2024/05/06,10:00:00;",
		"1,search,1,1,9780441013593,Dune,{Frank Herbert},2005-08-02;",
	}, strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n"))
}

func TestSessionsSurviveAcrossRequests(t *testing.T) {
	h := newRouter(t)

	post(t, h, "connect;")
	post(t, h, "1,login,admin,secret;")

	rec := post(t, h, "1,advance,2;")
	assert.Equal(t, "1,advance,success;\n", rec.Body.String())

	rec = post(t, h, "1,disconnect;1,datetime;")
	assert.Equal(t, "1,disconnect;\n1,datetime,invalid-state,logged-out|visitor-logged-in|employee-logged-in;\n", rec.Body.String())
}

func TestPartialRequest(t *testing.T) {
	h := newRouter(t)

	rec := post(t, h, "connect")
	assert.Equal(t, "partial-request;\n", rec.Body.String())
}

func TestEmptyBody(t *testing.T) {
	h := newRouter(t)

	rec := post(t, h, "  \n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
