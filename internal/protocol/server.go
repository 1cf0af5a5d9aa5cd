// internal/protocol/server.go

// Package protocol speaks the front desk's text command language.
//
// A request is `<clientID>,<command>,<args...>;` and is answered by
// `<clientID>,<command>,<fields...>;`. The only request without a client
// ID is `connect;`, which allocates one. Failures keep the command name and
// carry a reason token in place of the result fields.
package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"frontdesk/internal/account"
	"frontdesk/internal/fields"
	"frontdesk/internal/session"
)

// ActionFunc runs one command for a session and returns the response
// fields that follow the command name.
type ActionFunc func(ctx context.Context, s *session.Session, args []string) ([]string, error)

type action struct {
	op session.Operation
	fn ActionFunc
}

// Server dispatches parsed requests to registered actions.
type Server struct {
	proxy   *session.Proxy
	actions map[string]action
	logger  *slog.Logger
}

// NewServer registers every front desk command against proxy.
func NewServer(proxy *session.Proxy, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		proxy:   proxy,
		actions: make(map[string]action),
		logger:  logger,
	}
	srv.handle("create", session.CreateAccount, createAccount)
	srv.handle("login", session.Login, login)
	srv.handle("logout", session.Logout, logout)
	srv.handle("register", session.RegisterVisitor, registerVisitor)
	srv.handle("arrive", session.BeginVisit, beginVisit)
	srv.handle("depart", session.EndVisit, endVisit)
	srv.handle("info", session.CatalogSearch, catalogSearch)
	srv.handle("search", session.StoreSearch, storeSearch)
	srv.handle("borrow", session.Checkout, borrow)
	srv.handle("borrowed", session.FindBorrowed, findBorrowed)
	srv.handle("return", session.ReturnBooks, returnBooks)
	srv.handle("pay", session.PayFine, payFine)
	srv.handle("buy", session.PurchaseBooks, purchase)
	srv.handle("advance", session.AdvanceTime, advance)
	srv.handle("datetime", session.DateTime, dateTime)
	srv.handle("report", session.GenerateReport, generateReport)
	return srv
}

// handle registers a command and the session operation that gates it.
// Registering a name twice is a programming error.
func (srv *Server) handle(command string, op session.Operation, fn ActionFunc) {
	if _, exists := srv.actions[command]; exists {
		panic(fmt.Sprintf("protocol.Server: duplicate handler for command %q", command))
	}
	srv.actions[command] = action{op: op, fn: fn}
}

// HandleInput answers every terminated request in input, in order. Trailing
// text without a terminator is answered with partial-request.
func (srv *Server) HandleInput(ctx context.Context, input string) []string {
	requests, rest := fields.SplitRequests(input)

	responses := make([]string, 0, len(requests)+1)
	for _, req := range requests {
		if strings.TrimSpace(req) == "" {
			continue
		}
		responses = append(responses, srv.Handle(ctx, req))
	}
	if strings.TrimSpace(rest) != "" {
		responses = append(responses, "partial-request"+string(fields.Terminator))
	}
	return responses
}

// Handle answers one request given without its terminator.
func (srv *Server) Handle(ctx context.Context, request string) string {
	parts := fields.Split(strings.TrimSpace(request))

	n, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		if parts[0] == "connect" && len(parts) == 1 {
			return srv.connect(ctx)
		}
		return respond(nil, parts[0], "invalid-argument", "client-id-required")
	}
	client := session.ClientID(n)
	if len(parts) < 2 || parts[1] == "" {
		return respond(&client, "error", "unknown-command", "")
	}
	command, args := parts[1], parts[2:]

	switch command {
	case "connect":
		s := srv.proxy.Resolve(client)
		if _, err := session.Next(s.State(), session.Connect, account.RoleVisitor); err != nil {
			return respond(&client, command, reasons(err)...)
		}
		return srv.connect(ctx)
	case "disconnect":
		srv.proxy.Disconnect(ctx, client)
		return respond(&client, command)
	}

	act, ok := srv.actions[command]
	if !ok {
		return respond(&client, "error", "unknown-command", command)
	}

	// Refuse by state before looking at the arguments. The session checks
	// again under its own lock.
	s := srv.proxy.Resolve(client)
	if _, err := session.Next(s.State(), act.op, account.RoleVisitor); err != nil {
		return respond(&client, command, reasons(err)...)
	}

	result, err := act.fn(ctx, s, args)
	if err != nil {
		why := reasons(err)
		if why[0] == reasonServerError {
			srv.logger.ErrorContext(ctx, "command failed", "client", n, "command", command, "error", err)
		} else {
			srv.logger.DebugContext(ctx, "command refused", "client", n, "command", command, "reason", why[0], "error", err)
		}
		return respond(&client, command, why...)
	}
	return respond(&client, command, result...)
}

func (srv *Server) connect(ctx context.Context) string {
	s, err := srv.proxy.Connect(ctx)
	if err != nil {
		return respond(nil, "connect", reasons(err)...)
	}
	return respond(nil, "connect", strconv.FormatUint(uint64(s.ID()), 10))
}

// respond renders `[client,]command[,fields...];`.
func respond(client *session.ClientID, command string, result ...string) string {
	parts := make([]string, 0, len(result)+2)
	if client != nil {
		parts = append(parts, strconv.FormatUint(uint64(*client), 10))
	}
	parts = append(parts, command)
	parts = append(parts, result...)
	return strings.Join(parts, ",") + string(fields.Terminator)
}
