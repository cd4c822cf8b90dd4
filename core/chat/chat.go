// Package chat defines the contract between bot commands and the chat
// adapters that deliver messages to them.
package chat

import "regexp"

// Message is the context a handler receives for one matched message. It is
// only used to reply.
type Message interface {
	Send(text string) error
}

// Handler is invoked once per message matching a registered pattern.
type Handler func(msg Message)

// Robot binds trigger patterns to handlers.
type Robot interface {
	// Respond registers h for messages addressed to the robot whose text
	// matches pattern.
	Respond(pattern *regexp.Regexp, h Handler)
}

// Incoming is a message received by an adapter.
type Incoming struct {
	ID   string `json:"id"`
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	// Direct marks private messages, which are addressed to the robot
	// without naming it.
	Direct bool `json:"direct"`
}

// Receiver dispatches incoming messages to the registered handlers. reply is
// handed to every handler that matches.
type Receiver interface {
	Receive(in Incoming, reply Message) int
}
