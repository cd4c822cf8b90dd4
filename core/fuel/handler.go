package fuel

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/carfuel/core/chat"
	"github.com/kilianp07/carfuel/core/events"
	"github.com/kilianp07/carfuel/core/logger"
	"github.com/kilianp07/carfuel/core/model"
	coremon "github.com/kilianp07/carfuel/core/monitoring"
	"github.com/kilianp07/carfuel/internal/eventbus"
)

// Replies sent back to the chat.
const (
	BusyReply        = "Patience is a virtue!"
	fuelReplyFormat  = "Your fuel level is %s%%"
	errorReplyFormat = "There was an error: %s"
)

// Pattern is the trigger registered with the robot.
var Pattern = regexp.MustCompile(`car fuel`)

// VehicleSource lists the vehicles of the configured account.
type VehicleSource interface {
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
}

// Handler answers the "car fuel" command.
type Handler struct {
	src   VehicleSource
	guard Guard
	wg    sync.WaitGroup
	log   logger.Logger
	bus   *eventbus.TypedBus[events.QueryEvent]
}

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithEvents publishes a QueryEvent on bus for every invocation.
func WithEvents(bus *eventbus.TypedBus[events.QueryEvent]) Option {
	return func(h *Handler) { h.bus = bus }
}

// New returns a Handler reading vehicles from src.
func New(src VehicleSource, opts ...Option) *Handler {
	h := &Handler{src: src, log: nopLogger{}}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register wires the command on robot when token is set. With an empty token
// nothing is registered and nil is returned.
func Register(robot chat.Robot, token string, src VehicleSource, opts ...Option) *Handler {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	h := New(src, opts...)
	robot.Respond(Pattern, h.Handle)
	return h
}

// Handle answers one invocation. It returns immediately; the reply for an
// accepted invocation is sent from a separate goroutine once the vehicle
// list has been fetched.
func (h *Handler) Handle(msg chat.Message) {
	if !h.guard.TryAcquire() {
		h.reply(msg, BusyReply)
		h.publish(events.QueryEvent{Outcome: events.OutcomeBusy, Time: time.Now()})
		return
	}
	h.wg.Add(1)
	go h.run(msg)
}

// Busy reports whether a query is in flight.
func (h *Handler) Busy() bool { return h.guard.Busy() }

// Wait blocks until every accepted invocation has replied.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) run(msg chat.Message) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorf("fuel reply panicked: %v", r)
			coremon.Current().CapturePanic(r)
		}
	}()
	defer h.wg.Done()
	defer h.guard.Release()

	start := time.Now()
	v, level, err := h.query(context.Background())
	ev := events.QueryEvent{Duration: time.Since(start), Time: start}
	if err != nil {
		h.log.Errorf("fuel query failed: %v", err)
		coremon.CaptureException(err, map[string]string{"module": "fuel"})
		h.reply(msg, fmt.Sprintf(errorReplyFormat, err))
		ev.Outcome, ev.Err = events.OutcomeError, err
	} else {
		h.log.Infof("fuel level of %s is %s%%", v.Name(), level)
		h.reply(msg, fmt.Sprintf(fuelReplyFormat, level))
		ev.Outcome, ev.VehicleID, ev.FuelLevel = events.OutcomeSuccess, v.ID, level
	}
	h.publish(ev)
}

// query fetches the first vehicle and renders its fuel level. A panic while
// fetching or decoding is turned into an error so the caller still replies.
func (h *Handler) query(ctx context.Context) (v model.Vehicle, level string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	vehicles, err := h.src.ListVehicles(ctx)
	if err != nil {
		return v, "", err
	}
	v, err = model.VehicleList{Results: vehicles}.First()
	if err != nil {
		return v, "", err
	}
	level, err = v.FuelLevelPercent.Text()
	return v, level, err
}

func (h *Handler) reply(msg chat.Message, text string) {
	if err := msg.Send(text); err != nil {
		h.log.Errorf("send reply: %v", err)
	}
}

func (h *Handler) publish(ev events.QueryEvent) {
	if h.bus != nil {
		h.bus.Publish(ev)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
