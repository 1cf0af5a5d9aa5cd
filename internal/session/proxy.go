// internal/session/proxy.go
package session

import (
	"context"
	"log/slog"
	"sync"
)

// Proxy owns the table of connected sessions.
type Proxy struct {
	mu       sync.Mutex
	sessions map[ClientID]*Session
	next     ClientID
	lib      Library
	logger   *slog.Logger
}

// NewProxy creates an empty session table in front of lib.
func NewProxy(lib Library, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{
		sessions: make(map[ClientID]*Session),
		next:     1,
		lib:      lib,
		logger:   logger,
	}
}

// Connect assigns a client ID and returns its session, already LoggedOut.
func (p *Proxy) Connect(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	id := p.next
	p.next++
	s := newSession(id, p.lib, p.logger)
	p.sessions[id] = s
	p.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		p.drop(id)
		return nil, err
	}
	p.logger.InfoContext(ctx, "client connected", "client", uint64(id))
	return s, nil
}

// Resolve finds the session of id. Unknown clients get a detached session
// in Disconnected, so every operation other than Disconnect is refused.
func (p *Proxy) Resolve(id ClientID) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[id]; ok {
		return s
	}
	return newSession(id, p.lib, p.logger)
}

// Disconnect logs the client out and forgets it. A later request with the
// same ID sees a fresh Disconnected session.
func (p *Proxy) Disconnect(ctx context.Context, id ClientID) {
	s := p.Resolve(id)
	s.disconnect(ctx)
	if p.drop(id) {
		p.logger.InfoContext(ctx, "client disconnected", "client", uint64(id))
	}
}

// Len counts connected clients.
func (p *Proxy) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *Proxy) drop(id ClientID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.sessions[id]
	delete(p.sessions, id)
	return ok
}
