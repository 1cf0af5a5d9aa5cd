// internal/transport/flow_test.go
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/library"
	"frontdesk/internal/protocol"
	"frontdesk/internal/session"
	"frontdesk/internal/timeclock"
)

const flowBooks = `9780141439518,"Pride and Prejudice",{Jane Austen},Penguin,2002-12-31,480
9780743273565,"The Great Gatsby",{F. Scott Fitzgerald},Scribner,2004-09-30,180
`

type testSuite struct {
	server *httptest.Server
}

func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()
	books, err := catalog.ParseBooks(strings.NewReader(flowBooks))
	require.NoError(t, err)

	base := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	lib, err := library.New(catalog.NewBookstore(books),
		library.WithClock(timeclock.New(timeclock.WithBase(func() time.Time { return base }))),
		library.WithAccounts(account.NewStore(account.WithLoginLimit(rate.Inf, 1))),
	)
	require.NoError(t, err)
	require.NoError(t, lib.EnsureEmployee(context.Background(), "admin", "SecurePass123!"))

	srv := protocol.NewServer(session.NewProxy(lib, nil), nil)
	ts := httptest.NewServer(NewHandler(srv, nil).Router())
	t.Cleanup(ts.Close)
	return &testSuite{server: ts}
}

// send posts body and returns the response lines.
func (ts *testSuite) send(t *testing.T, body string) []string {
	t.Helper()
	resp, err := http.Post(ts.server.URL+"/commands", "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
}

// employee connects a client and logs it in as admin.
func (ts *testSuite) employee(t *testing.T) string {
	t.Helper()
	got := ts.send(t, "connect;")
	client := strings.TrimSuffix(strings.TrimPrefix(got[0], "connect,"), ";")
	require.Equal(t, []string{client + ",login,success;"}, ts.send(t, client+",login,admin,SecurePass123!;"))
	return client
}

func TestCheckoutFlow(t *testing.T) {
	ts := setupTestSuite(t)
	c := ts.employee(t)

	got := ts.send(t, c+`,register,Test,User,"1 Main St",5550001111;`)
	require.Equal(t, []string{c + ",register,1000000000;"}, got)

	got = ts.send(t, c+",search,Pride;"+c+",buy,5,1;")
	require.Equal(t, c+",buy,success,1,9780141439518,Pride and Prejudice,5;", got[1])

	got = ts.send(t, c+",info,Pride,*;"+c+",borrow,1000000000,1;"+c+",info,Pride,*;")
	assert.Equal(t, []string{
		c + ",info,1,1,9780141439518,Pride and Prejudice,{Jane Austen},2002-12-31,5;",
		c + ",borrow,2024/09/09;",
		c + ",info,1,1,9780141439518,Pride and Prejudice,{Jane Austen},2002-12-31,4;",
	}, got)

	got = ts.send(t, c+",return,1000000000,9780141439518;"+c+",info,Pride,*;")
	assert.Equal(t, []string{
		c + ",return,success;",
		c + ",info,1,1,9780141439518,Pride and Prejudice,{Jane Austen},2002-12-31,5;",
	}, got)
}

func TestConcurrentCheckoutPreventsDoubleBooking(t *testing.T) {
	ts := setupTestSuite(t)
	admin := ts.employee(t)
	ts.send(t, admin+",search,Gatsby;"+admin+",buy,1,1;")

	type member struct {
		client  string
		visitor string
	}
	var members []member
	for i := 0; i < 10; i++ {
		c := ts.employee(t)
		got := ts.send(t, fmt.Sprintf(`%s,register,Member,%d,"%d Elm St",555000%04d;`, c, i, i, i))
		id := strings.TrimSuffix(strings.TrimPrefix(got[0], c+",register,"), ";")
		require.Len(t, id, 10, got[0])
		ts.send(t, c+",info,Gatsby,*;")
		members = append(members, member{client: c, visitor: id})
	}

	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex

	for _, m := range members {
		wg.Add(1)
		go func(m member) {
			defer wg.Done()
			resp, err := http.Post(ts.server.URL+"/commands", "text/plain",
				strings.NewReader(m.client+",borrow,"+m.visitor+",1;"))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			if strings.HasPrefix(string(raw), m.client+",borrow,2024/") {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(m)
	}
	wg.Wait()

	assert.Equal(t, 1, successCount, "Only one concurrent checkout should succeed")

	got := ts.send(t, admin+",info,Gatsby,*;")
	assert.Equal(t, []string{admin + ",info,1,1,9780743273565,The Great Gatsby,{F. Scott Fitzgerald},2004-09-30,0;"}, got)
}
