package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kilianp07/carfuel/config"
	corechat "github.com/kilianp07/carfuel/core/chat"
	"github.com/kilianp07/carfuel/core/events"
	"github.com/kilianp07/carfuel/core/fuel"
	coremetrics "github.com/kilianp07/carfuel/core/metrics"
	coremon "github.com/kilianp07/carfuel/core/monitoring"
	"github.com/kilianp07/carfuel/infra/automatic"
	"github.com/kilianp07/carfuel/infra/chat"
	"github.com/kilianp07/carfuel/infra/logger"
	"github.com/kilianp07/carfuel/infra/metrics"
	"github.com/kilianp07/carfuel/infra/monitoring"
	"github.com/kilianp07/carfuel/infra/mqtt"
	"github.com/kilianp07/carfuel/internal/eventbus"
)

// Service wires the chat robot, the fuel command and its observability.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	router  *chat.Router
	handler *fuel.Handler
	bus     *eventbus.TypedBus[events.QueryEvent]
	sink    coremetrics.QuerySink

	console *chat.ConsoleAdapter
	mqtt    *mqtt.ChatAdapter

	collectorDone <-chan struct{}
	stopCollector context.CancelFunc

	// gate stops adapters from reaching the router once Close has started.
	gate   sync.RWMutex
	closed bool
}

type options struct {
	in            io.Reader
	out           io.Writer
	clientOptions []automatic.Option
}

// Option customises a Service.
type Option func(*options)

// WithConsole sets the streams used by the console adapter.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(o *options) { o.in, o.out = in, out }
}

// WithClientOptions forwards options to the Automatic API client.
func WithClientOptions(opts ...automatic.Option) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	o := options{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewQuerySink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	bus := eventbus.NewTyped[events.QueryEvent](eventbus.DefaultBuffer)
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	done := metrics.StartQueryCollector(collectorCtx, bus, sink, logger.New("metrics"))

	svc := &Service{
		cfg:           cfg,
		log:           logg,
		router:        chat.NewRouter(cfg.Chat.Name, logger.New("router")),
		bus:           bus,
		sink:          sink,
		collectorDone: done,
		stopCollector: stopCollector,
	}

	clientOpts := append([]automatic.Option{automatic.WithLogger(logger.New("automatic"))}, o.clientOptions...)
	client := automatic.NewClient(cfg.Automatic, clientOpts...)
	svc.handler = fuel.Register(svc.router, cfg.Automatic.Token, client,
		fuel.WithLogger(logger.New("fuel")),
		fuel.WithEvents(bus),
	)
	if svc.handler == nil {
		logg.Debugf("automatic token not set, car fuel disabled")
	}

	switch cfg.Chat.Adapter {
	case config.AdapterMQTT:
		a, err := mqtt.NewChatAdapter(cfg.MQTT, svc)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt adapter: %w", err)
		}
		svc.mqtt = a
	default:
		svc.console = chat.NewConsoleAdapter(svc, o.in, o.out, cfg.Chat.User)
	}
	return svc, nil
}

// Enabled reports whether the fuel command is registered.
func (s *Service) Enabled() bool { return s.handler != nil }

// Ask sends text to the robot as a direct console message and returns the
// number of commands it triggered. Replies go to the console output.
func (s *Service) Ask(text string) int {
	if s.console == nil {
		return 0
	}
	in := corechat.Incoming{Room: chat.ConsoleRoom, User: s.cfg.Chat.User, Text: text, Direct: true}
	return s.Receive(in, s.console)
}

// Receive routes in to the robot. It returns 0 without routing once Close
// has started.
func (s *Service) Receive(in corechat.Incoming, reply corechat.Message) int {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.closed {
		return 0
	}
	return s.router.Receive(in, reply)
}

// Run starts the service and blocks until the context is cancelled or, for
// the console adapter, until the input is exhausted.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Listen); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("robot %s listening on %s adapter", s.router.Name(), s.cfg.Chat.Adapter)
	if s.console != nil {
		return s.console.Run(ctx)
	}
	<-ctx.Done()
	return nil
}

// Close stops routing new messages, waits for in-flight queries to reply and
// releases resources held by the service. Replies and query events of
// accepted queries are delivered before the adapter and the bus are closed.
func (s *Service) Close() error {
	s.gate.Lock()
	s.closed = true
	s.gate.Unlock()

	if s.handler != nil {
		s.handler.Wait()
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.bus.Close()
	select {
	case <-s.collectorDone:
	case <-time.After(5 * time.Second):
		s.log.Warnf("metrics collector did not stop in time")
	}
	s.stopCollector()
	var err error
	if c, ok := s.sink.(coremetrics.Closer); ok {
		err = c.Close()
	}
	coremon.Flush(2 * time.Second)
	return err
}
