// Package fsm defines the recognizer connection lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
	StateError        State = "error"
)

const (
	EventDial   Event = "dial"
	EventOpen   Event = "open"
	EventClose  Event = "close"
	EventClosed Event = "closed"
	EventFail   Event = "fail"
	EventReset  Event = "reset"
)

// Live reports whether a connection exists or is being established in state s.
func (s State) Live() bool {
	return s == StateConnecting || s == StateConnected
}

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateDisconnected:
		switch event {
		case EventDial:
			return StateConnecting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnecting:
		switch event {
		case EventOpen:
			return StateConnected, nil
		case EventClose:
			return StateClosing, nil
		case EventClosed:
			return StateDisconnected, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnected:
		switch event {
		case EventClose:
			return StateClosing, nil
		case EventClosed:
			return StateDisconnected, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateClosing:
		switch event {
		case EventClosed:
			return StateDisconnected, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateDisconnected, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
