// Package runtime wires the connection, classifier, event bus, and
// command router into one service with an explicit lifecycle.
//
// All listener invocations for one post run sequentially on the posting
// goroutine. A long-running listener therefore delays heartbeat and
// frame handling downstream of it; listeners are expected to hand heavy
// work off instead of blocking the dispatch path.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wirebot/pkg/bus"
	"wirebot/pkg/command"
	"wirebot/pkg/config"
	"wirebot/pkg/logger"
	"wirebot/pkg/protocol"
)

// Transport is the connection boundary the service supervises.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	Send(data []byte) error
	Messages() <-chan []byte
	Errors() <-chan error
	IsOpen() bool
}

// TransportFactory dials a fresh transport; used on start and reconnect.
type TransportFactory func() Transport

// Service is the dispatcher: it owns the lifecycle topics, feeds
// inbound frames through the classifier, and republishes typed events.
type Service struct {
	cfg        *config.Config
	bus        *bus.EventBus
	classifier *protocol.Classifier
	router     *command.Router
	sender     protocol.Sender
	dial       TransportFactory
	runID      string

	mu        sync.Mutex
	log       *slog.Logger
	transport Transport
	runLog    io.WriteCloser
	started   bool
}

// NewService validates collaborators and builds an unstarted service.
func NewService(cfg *config.Config, b *bus.EventBus, classifier *protocol.Classifier, router *command.Router, snd protocol.Sender, dial TransportFactory, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if b == nil {
		return nil, errors.New("event bus is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if router == nil {
		return nil, errors.New("command router is required")
	}
	if dial == nil {
		return nil, errors.New("transport factory is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:        cfg,
		bus:        b,
		classifier: classifier,
		router:     router,
		sender:     snd,
		dial:       dial,
		runID:      uuid.NewString(),
		log:        log.With("component", "runtime.service"),
	}, nil
}

// Bus exposes the event bus for external listener registration.
func (s *Service) Bus() *bus.EventBus {
	return s.bus
}

// Start runs the startup sequence: before-start (awaited), run-log
// rotation, domain listener binding, transport connect, after-start
// (detached). A before-start listener error aborts startup.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("service already started")
	}
	s.started = true
	s.mu.Unlock()

	logDir := s.cfg.Logs.Dir
	results, err := s.bus.Post(ctx, BeforeStart{LogDir: logDir})
	if err != nil {
		return fmt.Errorf("before-start: %w", err)
	}
	// First listener wins when rewriting the working directory.
	if len(results) > 0 {
		if dir, ok := results[0].(string); ok && dir != "" {
			logDir = dir
		}
	}

	runLog, err := logger.OpenRunLog(logDir)
	if err != nil {
		return err
	}

	runLogger, err := logger.NewWithSink(s.cfg.Logging, runLog)
	if err != nil {
		_ = runLog.Close()
		return err
	}

	s.mu.Lock()
	s.runLog = runLog
	s.log = runLogger.With("component", "runtime.service")
	s.mu.Unlock()

	s.bindDomainListeners()

	transport := s.dial()
	if err := transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}

	s.mu.Lock()
	s.transport = transport
	s.mu.Unlock()

	go s.pump(ctx, transport)

	s.logger().Info("Runtime started", "run_id", s.runID, "log_dir", logDir)

	s.observeDetached(TopicAfterStart, s.bus.Go(ctx, AfterStart{}))

	return nil
}

// Stop runs the shutdown sequence: before-stop (awaited), transport
// close only if open, after-stop (detached).
func (s *Service) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	_, stopErr := s.bus.Post(ctx, BeforeStop{})
	if stopErr != nil {
		s.logger().Error("before-stop listener failed", "error", stopErr)
	}

	s.mu.Lock()
	transport := s.transport
	runLog := s.runLog
	s.transport = nil
	s.runLog = nil
	s.mu.Unlock()

	if transport != nil && transport.IsOpen() {
		if err := transport.Close(); err != nil {
			s.logger().Warn("Failed to close transport", "error", err)
		}
	}

	s.observeDetached(TopicAfterStop, s.bus.Go(context.Background(), AfterStop{}))

	s.logger().Info("Runtime stopped", "run_id", s.runID)

	if runLog != nil {
		_ = runLog.Close()
	}

	return stopErr
}

// Run starts the service, supervises the transport until ctx is done or
// the connection is irrecoverably lost, then stops.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	runErr := s.supervise(ctx)

	stopErr := s.Stop(context.Background())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	return stopErr
}

// supervise watches the transport for loss and redials within the
// configured bounds.
func (s *Service) supervise(ctx context.Context) error {
	for {
		s.mu.Lock()
		transport := s.transport
		s.mu.Unlock()
		if transport == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-transport.Errors():
			if !ok {
				return nil
			}
			s.logger().Warn("Transport lost", "error", err)

			next, rerr := s.reconnect(ctx)
			if rerr != nil {
				return rerr
			}

			s.mu.Lock()
			s.transport = next
			s.mu.Unlock()

			go s.pump(ctx, next)
		}
	}
}

// reconnect redials with exponential backoff up to the configured
// attempt bound.
func (s *Service) reconnect(ctx context.Context) (Transport, error) {
	if !s.cfg.Reconnect.Enabled {
		return nil, NewError(ErrorTransportLost, "reconnect disabled")
	}

	wait := time.Duration(s.cfg.Reconnect.BaseWaitSeconds) * time.Second
	maxWait := time.Duration(s.cfg.Reconnect.MaxWaitSeconds) * time.Second

	for attempt := 1; attempt <= s.cfg.Reconnect.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		s.logger().Info("Attempting reconnection", "attempt", attempt)

		transport := s.dial()
		if err := transport.Connect(ctx); err != nil {
			s.logger().Warn("Reconnection failed", "attempt", attempt, "error", err)
			wait *= 2
			if wait > maxWait {
				wait = maxWait
			}
			continue
		}

		s.logger().Info("Reconnected", "attempt", attempt)
		return transport, nil
	}

	return nil, NewError(ErrorTransportLost, fmt.Sprintf("gave up after %d attempts", s.cfg.Reconnect.MaxAttempts))
}

// pump feeds one transport generation's frames onto websocket-message.
// A listener failure is logged and the loop keeps processing.
func (s *Service) pump(ctx context.Context, transport Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-transport.Messages():
			if !ok {
				return
			}
			if _, err := s.bus.Post(ctx, protocol.RawFrame{Raw: frame}); err != nil {
				s.logger().Error("websocket-message listener failed",
					"category", CategoryFromError(err),
					"error", err,
				)
			}
		}
	}
}

// bindDomainListeners wires the three domain topics.
func (s *Service) bindDomainListeners() {
	s.bus.Subscribe(protocol.TopicWebSocketMessage, "runtime.classify", 0, false, s.onRawFrame)
	s.bus.Subscribe(protocol.TopicUserMessage, "runtime.user", 0, false, s.onUserMessage)
	s.bus.Subscribe(protocol.TopicCommandMessage, "runtime.command", 0, false, s.onCommandMessage)
}

// onRawFrame classifies one frame and republishes the typed result.
func (s *Service) onRawFrame(ctx context.Context, _ *bus.Cancellation, ev bus.Event) (any, error) {
	raw, ok := ev.(protocol.RawFrame)
	if !ok {
		return nil, nil
	}

	classified, ok := s.classifier.Classify(raw.Raw)
	if !ok {
		// Malformed frame, already logged; the loop keeps going.
		return nil, nil
	}

	switch typed := classified.(type) {
	case protocol.UserMessage, protocol.CommandMessage:
		if _, err := s.bus.Post(ctx, classified); err != nil {
			return nil, err
		}
	case protocol.Unrecognized:
		s.logger().Debug("Ignoring unrecognized frame")
	case protocol.Pong:
		// Consumed by the connection layer; terminal here.
	default:
		s.logger().Debug("Ignoring event with no route", "topic", typed.Topic())
	}

	return nil, nil
}

func (s *Service) onUserMessage(_ context.Context, _ *bus.Cancellation, ev bus.Event) (any, error) {
	msg, ok := ev.(protocol.UserMessage)
	if !ok {
		return nil, nil
	}

	s.logger().Info("User message", "sender_id", msg.User.UserID, "nick_name", msg.User.NickName)

	return nil, nil
}

// onCommandMessage bridges command events to the resolution collaborator.
func (s *Service) onCommandMessage(ctx context.Context, _ *bus.Cancellation, ev bus.Event) (any, error) {
	msg, ok := ev.(protocol.CommandMessage)
	if !ok {
		return nil, nil
	}

	reply := func(ctx context.Context, text string) error {
		if err := protocol.SendReply(ctx, s.sender, msg.Reply, text); err != nil {
			return NewError(ErrorSendFailed, err.Error())
		}
		return nil
	}

	return nil, s.router.Dispatch(ctx, msg, reply)
}

// observeDetached supervises a fire-and-forget post so its failure is
// logged instead of vanishing.
func (s *Service) observeDetached(topic string, handle *bus.PostHandle) {
	go func() {
		<-handle.Done()
		if err := handle.Err(); err != nil {
			s.logger().Error("Detached post failed", "topic", topic, "error", err)
		}
	}()
}

func (s *Service) logger() *slog.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log
}
