// Package chat provides the in-process robot that routes chat messages to
// command handlers, and a console adapter for local use.
package chat

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	corechat "github.com/kilianp07/carfuel/core/chat"
	"github.com/kilianp07/carfuel/infra/logger"
)

// DefaultName is the robot name used when none is configured.
const DefaultName = "carfuel"

type listener struct {
	pattern *regexp.Regexp
	handler corechat.Handler
}

// Router implements corechat.Robot with "respond" semantics: a message
// triggers a listener only when it is addressed to the robot, either by
// starting with the robot name ("carfuel: car fuel", "@carfuel car fuel") or
// by being a direct message. The listener pattern must then match at the
// start of the remaining text.
type Router struct {
	name      string
	address   *regexp.Regexp
	log       logger.Logger
	mu        sync.RWMutex
	listeners []listener
}

// NewRouter creates a Router answering to name.
func NewRouter(name string, log logger.Logger) *Router {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Router{
		name:    name,
		address: regexp.MustCompile(`^\s*@?(?i:` + regexp.QuoteMeta(name) + `)[:,]?\s*`),
		log:     log,
	}
}

// Name returns the robot name.
func (r *Router) Name() string { return r.name }

// Respond registers h for addressed messages matching pattern.
func (r *Router) Respond(pattern *regexp.Regexp, h corechat.Handler) {
	anchored := regexp.MustCompile(`^\s*(?:` + pattern.String() + `)`)
	r.mu.Lock()
	r.listeners = append(r.listeners, listener{pattern: anchored, handler: h})
	r.mu.Unlock()
	r.log.Debugf("listening for %q", pattern.String())
}

// Listeners returns the number of registered listeners.
func (r *Router) Listeners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Receive runs every listener matching in and returns how many ran.
func (r *Router) Receive(in corechat.Incoming, reply corechat.Message) int {
	text := in.Text
	if loc := r.address.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	} else if !in.Direct {
		return 0
	}

	r.mu.RLock()
	matched := make([]listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		if l.pattern.MatchString(text) {
			matched = append(matched, l)
		}
	}
	r.mu.RUnlock()

	for _, l := range matched {
		r.dispatch(l, in, reply)
	}
	return len(matched)
}

func (r *Router) dispatch(l listener, in corechat.Incoming, reply corechat.Message) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Errorf("listener %q panicked on message %s: %v", l.pattern.String(), in.ID, fmt.Sprint(v))
		}
	}()
	r.log.Debugw("message matched", map[string]any{"room": in.Room, "user": in.User, "pattern": l.pattern.String()})
	l.handler(reply)
}
