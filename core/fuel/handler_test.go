package fuel

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carfuel/core/chat"
	"github.com/kilianp07/carfuel/core/events"
	"github.com/kilianp07/carfuel/core/model"
	coremon "github.com/kilianp07/carfuel/core/monitoring"
	"github.com/kilianp07/carfuel/internal/eventbus"
)

type registration struct {
	pattern *regexp.Regexp
	handler chat.Handler
}

type recordRobot struct {
	regs []registration
}

func (r *recordRobot) Respond(p *regexp.Regexp, h chat.Handler) {
	r.regs = append(r.regs, registration{p, h})
}

type recordMessage struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordMessage) Send(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return m.err
}

func (m *recordMessage) replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// stubSource returns the configured result, optionally blocking until
// release is closed.
type stubSource struct {
	mu       sync.Mutex
	calls    int
	vehicles []model.Vehicle
	err      error
	panicV   any
	release  chan struct{}
}

func (s *stubSource) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	if s.panicV != nil {
		panic(s.panicV)
	}
	return s.vehicles, s.err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func vehicle(t *testing.T, raw string) model.Vehicle {
	t.Helper()
	var l model.VehicleList
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	require.NotEmpty(t, l.Results)
	return l.Results[0]
}

func TestRegisterWithoutToken(t *testing.T) {
	for _, token := range []string{"", "   "} {
		robot := &recordRobot{}
		h := Register(robot, token, &stubSource{})
		assert.Nil(t, h)
		assert.Empty(t, robot.regs, "token %q should not register a listener", token)
	}
}

func TestRegisterWithToken(t *testing.T) {
	robot := &recordRobot{}
	h := Register(robot, "token", &stubSource{})
	require.NotNil(t, h)
	require.Len(t, robot.regs, 1)
	assert.True(t, robot.regs[0].pattern.MatchString("car fuel"))
	assert.True(t, robot.regs[0].pattern.MatchString("what is my car fuel"))
	assert.False(t, robot.regs[0].pattern.MatchString("Car Fuel"))
	assert.NotNil(t, robot.regs[0].handler)
}

func TestHandleBusy(t *testing.T) {
	src := &stubSource{release: make(chan struct{}), vehicles: []model.Vehicle{vehicle(t, `{"results":[{"fuel_level_percent":"42"}]}`)}}
	robot := &recordRobot{}
	h := Register(robot, "token", src)
	handler := robot.regs[0].handler
	msg := &recordMessage{}

	handler(msg)
	assert.Empty(t, msg.replies(), "first call should not reply immediately")
	assert.True(t, h.Busy())

	handler(msg)
	assert.Equal(t, []string{BusyReply}, msg.replies())

	close(src.release)
	h.Wait()
	assert.Equal(t, []string{BusyReply, "Your fuel level is 42%"}, msg.replies())
	assert.Equal(t, 1, src.callCount())
	assert.False(t, h.Busy())
}

func TestHandleFuelLevel(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"results":[{"fuel_level_percent":"42"}]}`, "Your fuel level is 42%"},
		{"number", `{"results":[{"fuel_level_percent":87.5}]}`, "Your fuel level is 87.5%"},
		{"first_vehicle_only", `{"results":[{"id":"a","fuel_level_percent":10},{"id":"b","fuel_level_percent":90}]}`, "Your fuel level is 10%"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var l model.VehicleList
			require.NoError(t, json.Unmarshal([]byte(c.body), &l))
			h := New(&stubSource{vehicles: l.Results})
			msg := &recordMessage{}
			h.Handle(msg)
			h.Wait()
			assert.Equal(t, []string{c.want}, msg.replies())
		})
	}
}

func TestHandleErrors(t *testing.T) {
	cases := []struct {
		name string
		src  *stubSource
		want string
	}{
		{"transport", &stubSource{err: errors.New("epic fail")}, "There was an error: epic fail"},
		{"empty_results", &stubSource{}, "There was an error: " + model.ErrNoVehicles.Error()},
		{"missing_fuel", &stubSource{vehicles: []model.Vehicle{{ID: "C_1"}}}, "There was an error: " + model.ErrNoFuelLevel.Error()},
		{"panic", &stubSource{panicV: "nil vehicle"}, "There was an error: nil vehicle"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := New(c.src)
			msg := &recordMessage{}
			h.Handle(msg)
			h.Wait()
			assert.Equal(t, []string{c.want}, msg.replies())
			assert.False(t, h.Busy(), "guard must be released")
		})
	}
}

func TestGuardReleasedBetweenInvocations(t *testing.T) {
	src := &stubSource{err: errors.New("epic fail")}
	h := New(src)
	msg := &recordMessage{}

	h.Handle(msg)
	h.Wait()
	src.err = nil
	src.vehicles = []model.Vehicle{vehicle(t, `{"results":[{"fuel_level_percent":"42"}]}`)}
	h.Handle(msg)
	h.Wait()

	assert.Equal(t, []string{"There was an error: epic fail", "Your fuel level is 42%"}, msg.replies())
	assert.Equal(t, 2, src.callCount())
}

func TestHandleConcurrentInvocations(t *testing.T) {
	src := &stubSource{release: make(chan struct{}), vehicles: []model.Vehicle{vehicle(t, `{"results":[{"fuel_level_percent":5}]}`)}}
	h := New(src)
	msgs := make([]*recordMessage, 20)
	var wg sync.WaitGroup
	for i := range msgs {
		msgs[i] = &recordMessage{}
		wg.Add(1)
		go func(m *recordMessage) {
			defer wg.Done()
			h.Handle(m)
		}(msgs[i])
	}
	wg.Wait()
	close(src.release)
	h.Wait()

	busy, answered := 0, 0
	for _, m := range msgs {
		replies := m.replies()
		require.Len(t, replies, 1, "every invocation gets exactly one reply")
		switch replies[0] {
		case BusyReply:
			busy++
		case "Your fuel level is 5%":
			answered++
		}
	}
	assert.Equal(t, 1, answered)
	assert.Equal(t, len(msgs)-1, busy)
	assert.Equal(t, 1, src.callCount())
}

func TestHandleSendErrorStillReleases(t *testing.T) {
	h := New(&stubSource{err: errors.New("epic fail")})
	msg := &recordMessage{err: errors.New("room gone")}
	h.Handle(msg)
	h.Wait()
	assert.False(t, h.Busy())
}

type panicMessage struct{}

func (panicMessage) Send(string) error { panic("room closed") }

func TestHandleSendPanicIsContained(t *testing.T) {
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	src := &stubSource{vehicles: []model.Vehicle{vehicle(t, `{"results":[{"fuel_level_percent":"42"}]}`)}}
	h := New(src)
	h.Handle(panicMessage{})
	h.Wait()
	assert.False(t, h.Busy())

	msg := &recordMessage{}
	h.Handle(msg)
	h.Wait()
	assert.Equal(t, []string{"Your fuel level is 42%"}, msg.replies())

	mon.mu.Lock()
	defer mon.mu.Unlock()
	assert.Equal(t, []any{"room closed"}, mon.panics)
}

func TestHandlePublishesEvents(t *testing.T) {
	bus := eventbus.NewTyped[events.QueryEvent](8)
	sub := bus.Subscribe()
	src := &stubSource{release: make(chan struct{}), vehicles: []model.Vehicle{vehicle(t, `{"results":[{"id":"C_1","fuel_level_percent":"42"}]}`)}}
	h := New(src, WithEvents(bus))
	msg := &recordMessage{}

	h.Handle(msg)
	h.Handle(msg)
	close(src.release)
	h.Wait()

	got := []events.QueryEvent{recv(t, sub), recv(t, sub)}
	assert.Equal(t, events.OutcomeBusy, got[0].Outcome)
	assert.Equal(t, events.OutcomeSuccess, got[1].Outcome)
	assert.Equal(t, "C_1", got[1].VehicleID)
	assert.Equal(t, "42", got[1].FuelLevel)
}

type recordMonitor struct {
	mu     sync.Mutex
	errs   []error
	tags   map[string]string
	panics []any
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panics = append(r.panics, v)
}
func (r *recordMonitor) Flush(time.Duration) {}

func TestHandleErrorCaptured(t *testing.T) {
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	h := New(&stubSource{err: errors.New("epic fail")})
	h.Handle(&recordMessage{})
	h.Wait()

	mon.mu.Lock()
	defer mon.mu.Unlock()
	require.Len(t, mon.errs, 1)
	assert.EqualError(t, mon.errs[0], "epic fail")
	assert.Equal(t, "fuel", mon.tags["module"])
}

func recv(t *testing.T, ch <-chan events.QueryEvent) events.QueryEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
	return events.QueryEvent{}
}
