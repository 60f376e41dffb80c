// Package command resolves classified command invocations to registered
// handlers. Grammar parsing and validation are out of scope: only the
// name token of a grammar is interpreted, the rest is stored opaque for
// the executor library.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"wirebot/pkg/protocol"
)

// ReplyFunc sends text back to the invocation's origin.
type ReplyFunc func(ctx context.Context, text string) error

// Invocation is the execution context handed to a handler.
type Invocation struct {
	Sender  protocol.UserBaseInfo
	Room    protocol.RoomBaseInfo
	Channel protocol.ChannelBaseInfo
	Args    []string
	Reply   ReplyFunc
}

// HandlerFunc executes one resolved command.
type HandlerFunc func(ctx context.Context, inv Invocation) error

type registration struct {
	grammar    string
	permission string
	fn         HandlerFunc
}

// Router maps command names to registered handlers.
type Router struct {
	log *slog.Logger

	mu       sync.RWMutex
	handlers map[string]registration
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		log:      log.With("component", "command.router"),
		handlers: make(map[string]registration),
	}
}

// Register binds a handler under the grammar's name token. The optional
// permission string is kept for the executor; it is not enforced here.
func (r *Router) Register(grammar string, permission string, fn HandlerFunc) error {
	name := NameFromGrammar(grammar)
	if name == "" {
		return errors.New("grammar has no command name")
	}
	if fn == nil {
		return errors.New("handler is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	r.handlers[name] = registration{grammar: grammar, permission: permission, fn: fn}

	return nil
}

// Dispatch resolves ev to a handler and invokes it. An unresolved
// command is logged, never raised.
func (r *Router) Dispatch(ctx context.Context, ev protocol.CommandMessage, reply ReplyFunc) error {
	r.mu.RLock()
	reg, ok := r.handlers[ev.Command]
	r.mu.RUnlock()

	if !ok {
		r.log.Warn("No handler for command", "command", ev.Command, "sender_id", ev.Sender.UserID)
		return nil
	}

	inv := Invocation{
		Sender:  ev.Sender,
		Room:    ev.Room,
		Channel: ev.Channel,
		Args:    ev.Args,
		Reply:   reply,
	}

	if err := reg.fn(ctx, inv); err != nil {
		return fmt.Errorf("execute command %q: %w", ev.Command, err)
	}

	return nil
}

// Commands returns the registered command names.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}

	return names
}

// NameFromGrammar extracts the command name: the first whitespace token,
// without a leading slash.
func NameFromGrammar(grammar string) string {
	fields := strings.Fields(grammar)
	if len(fields) == 0 {
		return ""
	}

	return strings.TrimPrefix(fields[0], "/")
}
