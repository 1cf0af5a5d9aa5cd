// internal/protocol/server_test.go
package protocol

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontdesk/internal/catalog"
	"frontdesk/internal/library"
	"frontdesk/internal/session"
	"frontdesk/internal/timeclock"
)

const storeBooks = `9780553283686,"Hyperion",{Dan Simmons},Spectra,1990-03-01,482
9780441013593,"Dune",{Frank Herbert},Ace,2005-08-02,617
`

var base = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

func newServer(t *testing.T) *Server {
	t.Helper()
	books, err := catalog.ParseBooks(strings.NewReader(storeBooks))
	require.NoError(t, err)
	clock := timeclock.New(timeclock.WithBase(func() time.Time { return base }))
	lib, err := library.New(catalog.NewBookstore(books), library.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, lib.EnsureEmployee(context.Background(), "admin", "secret"))
	return NewServer(session.NewProxy(lib, nil), nil)
}

type exchange struct {
	request string
	want    string
}

func run(t *testing.T, srv *Server, script []exchange) {
	t.Helper()
	for _, ex := range script {
		got := srv.HandleInput(context.Background(), ex.request)
		require.Len(t, got, 1, ex.request)
		assert.Equal(t, ex.want, got[0], ex.request)
	}
}

func TestEmployeeConversation(t *testing.T) {
	srv := newServer(t)

	run(t, srv, []exchange{
		{"connect;", "connect,1;"},
		{"1,datetime;", "1,datetime,2024/05/06,10:00:00;"},
		{"1,advance,1;", "1,advance,invalid-state,employee-logged-in;"},
		{"1,arrive,1000000000;", "1,arrive,invalid-state,visitor-logged-in|employee-logged-in;"},
		{"1,login,admin,wrong;", "1,login,bad-username-or-password;"},
		{"1,login,admin,secret;", "1,login,success;"},
		{"1,login,admin,secret;", "1,login,invalid-state,logged-out;"},
		{`1,register,Ada,Lovelace,"12 St James's Square",5551234567;`, "1,register,1000000000;"},
		{`1,register,Ada,Lovelace,"12 St James's Square",5551234567;`, "1,register,duplicate;"},
		{"1,register,Ada;", "1,register,invalid-argument,argument-count;"},
		{"1,arrive,1000000000;", "1,arrive,1000000000,2024/05/06,10:00:00;"},
		{"1,arrive,1000000000;", "1,arrive,duplicate;"},
		{"1,arrive,1000000099;", "1,arrive,invalid-id;"},
		{"1,arrive,12;", "1,arrive,invalid-id;"},
		{"1,arrive;", "1,arrive,invalid-argument,visitor-id;"},
		{"1,search,*;", "1,search,2,1,9780553283686,Hyperion,{Dan Simmons},1990-03-01,2,9780441013593,Dune,{Frank Herbert},2005-08-02;"},
		{"1,buy,0,1;", "1,buy,invalid-quantity;"},
		{"1,buy,1,7;", "1,buy,invalid-book-id,{7};"},
		{"1,buy,2,1,2;", "1,buy,success,2,9780553283686,Hyperion,2,9780441013593,Dune,2;"},
		{"1,borrow,1000000000,1;", "1,borrow,no-recent-search-found;"},
		{"1,info,*,*;", "1,info,2,1,9780553283686,Hyperion,{Dan Simmons},1990-03-01,2,2,9780441013593,Dune,{Frank Herbert},2005-08-02,2;"},
		{"1,borrow,1000000000,9;", "1,borrow,invalid-book-id,{9};"},
		{"1,borrow,1000000042,1;", "1,borrow,invalid-visitor-id;"},
		{"1,borrow,1000000000,{1,2};", "1,borrow,2024/05/13;"},
		{"1,borrowed,1000000000;", "1,borrowed,2,9780553283686,Hyperion,2024/05/06,9780441013593,Dune,2024/05/06;"},
		{"1,advance,9,2;", "1,advance,success;"},
		{"1,datetime;", "1,datetime,2024/05/15,12:00:00;"},
		{"1,return,1000000000,1;", "1,return,10;"},
		{"1,info,*,*;", "1,info,2,1,9780553283686,Hyperion,{Dan Simmons},1990-03-01,2,2,9780441013593,Dune,{Frank Herbert},2005-08-02,1;"},
		{"1,borrow,1000000000,1;", "1,borrow,outstanding-fine,10;"},
		{"1,pay,1000000000,20;", "1,pay,invalid-amount,20,10;"},
		{"1,pay,,5;", "1,pay,invalid-argument,visitor-id;"},
		{"1,pay,1000000042,5;", "1,pay,invalid-visitor-id;"},
		{"1,pay,1000000000,4;", "1,pay,success,6;"},
		{"1,pay,1000000000,6;", "1,pay,success,0;"},
		{"1,return,1000000000,nope;", "1,return,success;"},
		{"1,depart,1000000000;", "1,depart,1000000000,12:00:00,218:00:00;"},
		{"1,depart,1000000000;", "1,depart,invalid-id;"},
		{"1,advance,-1;", "1,advance,invalid-number-of-days,-1;"},
		{"1,advance,1,x;", "1,advance,invalid-number-of-hours,x;"},
		{"1,advance,200000;", "1,advance,invalid-number-of-days,200000;"},
		{"1,advance,0,9223372036854775807;", "1,advance,invalid-number-of-hours,9223372036854775807;"},
		{"1,datetime;", "1,datetime,2024/05/15,12:00:00;"},
		{"1,bogus;", "1,error,unknown-command,bogus;"},
		{"1,logout;", "1,logout,success;"},
		{"1,disconnect;", "1,disconnect;"},
		{"1,datetime;", "1,datetime,invalid-state,logged-out|visitor-logged-in|employee-logged-in;"},
		{"datetime;", "datetime,invalid-argument,client-id-required;"},
	})
}

func TestVisitorConversation(t *testing.T) {
	srv := newServer(t)

	run(t, srv, []exchange{
		{"connect;", "connect,1;"},
		{"1,register,Ada,Lovelace,London,1;", "1,register,1000000000;"},
		{"1,register,Alan,Turing,Wilmslow,2;", "1,register,1000000001;"},
		{"1,create,ada,pw,visitor;", "1,create,invalid-visitor-id;"},
		{"1,create,ada,pw,visitor,1000000005;", "1,create,invalid-visitor-id;"},
		{"1,create,ada,pw,admin,1000000000;", "1,create,invalid-argument,role;"},
		{"1,create,ada,pw,visitor,1000000000;", "1,create,success;"},
		{"1,create,ada,pw,visitor,1000000000;", "1,create,duplicate-username;"},
		{"1,login,ada,pw;", "1,login,success;"},
		{"1,arrive;", "1,arrive,1000000000,2024/05/06,10:00:00;"},
		{"1,arrive,1000000001;", "1,arrive,invalid-state,employee-logged-in;"},
		{"1,borrowed;", "1,borrowed,0;"},
		{"1,borrowed,1000000001;", "1,borrowed,invalid-state,employee-logged-in;"},
		{"1,report;", "1,report,invalid-state,employee-logged-in;"},
		{"1,pay,1000000000,1;", "1,pay,invalid-state,employee-logged-in;"},
		{"1,depart;", "1,depart,1000000000,10:00:00,00:00:00;"},
	})
}

func TestReport(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	run(t, srv, []exchange{
		{"connect;", "connect,1;"},
		{"1,login,admin,secret;", "1,login,success;"},
		{"1,report,x;", "1,report,invalid-argument,days;"},
		{"1,report,-1;", "1,report,invalid-argument,days;"},
	})

	got := srv.HandleInput(ctx, "1,report,7;")
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "1,report,2024/05/06,Library report for last 7 days\n"), got[0])
	assert.True(t, strings.HasSuffix(got[0], "Outstanding fines: $0;"), got[0])
}

func TestHandleInputBatches(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	got := srv.HandleInput(ctx, "connect;connect;\n2,datetime;3,")
	assert.Equal(t, []string{
		"connect,1;",
		"connect,2;",
		"2,datetime,2024/05/06,10:00:00;",
		"partial-request;",
	}, got)

	assert.Equal(t, []string{"1,connect,invalid-state,disconnected;"}, srv.HandleInput(ctx, "1,connect;"))
	assert.Equal(t, []string{"connect,3;"}, srv.HandleInput(ctx, "9,connect;"))
	assert.Equal(t, []string{"1,error,unknown-command,;"}, srv.HandleInput(ctx, "1;"))
	assert.Empty(t, srv.HandleInput(ctx, " ; ;"))
}

func TestRegisterHandlerTwicePanics(t *testing.T) {
	srv := newServer(t)
	assert.Panics(t, func() {
		srv.handle("datetime", session.DateTime, dateTime)
	})
}
