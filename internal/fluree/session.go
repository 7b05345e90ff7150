// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fluree

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/ledger-migrate/internal/prompt"
)

// State is one node of the connection state machine.
type State int

const (
	StateIdle State = iota
	StateQuerying
	StateNeedsURL
	StateNeedsAuth
	StateSuccess
	StateFatal
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateQuerying:  "querying",
	StateNeedsURL:  "needs-url",
	StateNeedsAuth: "needs-auth",
	StateSuccess:   "success",
	StateFatal:     "fatal",
}

func (s State) String() string { return stateNames[s] }

// Event is one input to the state machine.
type Event int

const (
	// EventStart begins a request cycle.
	EventStart Event = iota
	// EventOK is a 2xx response.
	EventOK
	// EventUnauthorized is a reachable endpoint rejecting the credential.
	EventUnauthorized
	// EventUnavailable is a transport failure or unexpected status.
	EventUnavailable
	// EventResolved means the blocking value was corrected.
	EventResolved
	// EventGiveUp means no correction is possible (unattended run).
	EventGiveUp
)

var eventNames = map[Event]string{
	EventStart:        "start",
	EventOK:           "ok",
	EventUnauthorized: "unauthorized",
	EventUnavailable:  "unavailable",
	EventResolved:     "resolved",
	EventGiveUp:       "give-up",
}

func (e Event) String() string { return eventNames[e] }

// transitions is the full table of the connection state machine.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateQuerying,
	},
	StateQuerying: {
		EventOK:           StateSuccess,
		EventUnauthorized: StateNeedsAuth,
		EventUnavailable:  StateNeedsURL,
	},
	StateNeedsURL: {
		EventResolved: StateQuerying,
		EventGiveUp:   StateFatal,
	},
	StateNeedsAuth: {
		EventResolved: StateQuerying,
		EventGiveUp:   StateFatal,
	},
}

// Next applies one event to the machine. Undefined pairs are an error
// so broken call sequences fail loudly instead of looping.
func Next(s State, e Event) (State, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return StateFatal, fmt.Errorf("no transition from %s on %s", s, e)
}

// classify maps an availability/authorization pair to the event it
// raises. Availability is resolved first, matching the caller
// contract of fixing the first false condition.
func classify(available, authorized bool) Event {
	switch {
	case available && authorized:
		return EventOK
	case !available:
		return EventUnavailable
	default:
		return EventUnauthorized
	}
}

// Validate classifies a response (or transport error) into
// availability and authorization, updates the instance flags, and
// returns a user-facing message for failures.
//
// A transport error reports (false, true): connectivity loss alone
// must not re-prompt for a credential. 401/403 reports (true, false)
// with a message depending on whether a credential was supplied. Any
// other non-2xx status reports unavailable, with authorization
// inferred from credential presence.
func (i *Instance) Validate(resp *http.Response, err error) (available, authorized bool, msg string) {
	switch {
	case err != nil:
		available, authorized = false, true
		msg = "The request to the database failed. Please try again."
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		available, authorized = true, true
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		available, authorized = true, false
		if i.APIKey != "" {
			msg = "The API key you provided is not authorized to access this database. Please try again."
		} else {
			msg = "It appears you need to provide an API key to access this database. Please try again."
		}
	default:
		available, authorized = false, i.APIKey == ""
		msg = fmt.Sprintf("The request to [%s] returned a status code of %d. Please try again.", i.URL, resp.StatusCode)
	}
	i.Available = available
	i.Authorized = authorized
	return available, authorized, msg
}

// Session drives one Instance through the connection state machine,
// resolving unavailable/unauthorized states through a Prompter. A nil
// Prompter makes every blocking state fatal, which is what unattended
// runs want after the bounded transport retry is exhausted.
type Session struct {
	Instance *Instance
	Prompter prompt.Prompter
	Out      io.Writer

	state State
}

// State reports the machine's current state.
func (s *Session) State() State { return s.state }

// Do runs op until it yields a successful response or the machine
// reaches a fatal state. op is re-invoked after each remediation, so
// it must re-read s.Instance fields on every call.
func (s *Session) Do(ctx context.Context, op func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	var err error
	s.state = StateIdle
	if s.state, err = Next(s.state, EventStart); err != nil {
		return nil, err
	}

	var lastMsg string
	for {
		switch s.state {
		case StateQuerying:
			resp, opErr := op(ctx)
			available, authorized, msg := s.Instance.Validate(resp, opErr)
			if msg != "" {
				fmt.Fprintln(s.out(), msg)
				lastMsg = msg
			}
			event := classify(available, authorized)
			if event != EventOK && resp != nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			if s.state, err = Next(s.state, event); err != nil {
				return nil, err
			}
			if s.state == StateSuccess {
				return resp, nil
			}

		case StateNeedsURL:
			if s.Prompter == nil {
				s.state, _ = Next(s.state, EventGiveUp)
				continue
			}
			u, promptErr := s.Prompter.URL(s.Instance.URL)
			if promptErr != nil {
				return nil, promptErr
			}
			s.Instance.URL = u
			if s.state, err = Next(s.state, EventResolved); err != nil {
				return nil, err
			}

		case StateNeedsAuth:
			if s.Prompter == nil {
				s.state, _ = Next(s.state, EventGiveUp)
				continue
			}
			key, promptErr := s.Prompter.Credential()
			if promptErr != nil {
				return nil, promptErr
			}
			s.Instance.APIKey = key
			if s.state, err = Next(s.state, EventResolved); err != nil {
				return nil, err
			}

		case StateFatal:
			if lastMsg == "" {
				lastMsg = "the connection could not be established"
			}
			return nil, fmt.Errorf("giving up on %s: %s", s.Instance.URL, lastMsg)

		default:
			return nil, fmt.Errorf("connection state machine stuck in %s", s.state)
		}
	}
}

func (s *Session) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return io.Discard
}
