package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const (
	CreateTask = "create_paste"
	ReadTask   = "read_paste"
)

// Weights are the relative odds of each task being picked on a step.
type Weights struct {
	Create int
	Read   int
}

// Scenario holds what every session shares: the client, the stats, the
// sender and the scenario settings. None of it is per-user state.
type Scenario struct {
	Client  *Client
	Stats   *Stats
	Sender  Sender
	Profile Profile
	Weights Weights
	WaitMin time.Duration
	WaitMax time.Duration
	Log     Logger
}

type task struct {
	name string
	run  func(ctx context.Context) *Call
}

// Session is one simulated user. It must only be used by one goroutine.
type Session struct {
	sc         *Scenario
	rng        Rng
	tasks      []task
	weights    []int
	createdIDs []string
}

// NewSession starts a user with no created pastes.
func (sc *Scenario) NewSession(seed string) *Session {
	s := &Session{
		sc:         sc,
		rng:        NewRng(seed),
		createdIDs: make([]string, 0),
	}
	s.tasks = []task{
		{name: CreateTask, run: s.CreatePaste},
		{name: ReadTask, run: s.ReadPaste},
	}
	s.weights = []int{sc.Weights.Create, sc.Weights.Read}
	return s
}

// CreatedIDs returns a copy of the ids this user has created, oldest first.
func (s *Session) CreatedIDs() []string {
	ids := make([]string, len(s.createdIDs))
	copy(ids, s.createdIDs)
	return ids
}

// CreatePaste posts a random paste and remembers its id if the API returns
// one with a 201.
func (s *Session) CreatePaste(ctx context.Context) *Call {
	req := NewPasteRequest(s.rng, s.sc.Profile)
	call := s.sc.Client.PostJSON(ctx, PastePath, PastePath, req)
	if call.StatusCode == http.StatusCreated {
		var resp PasteResponse
		if err := json.Unmarshal(call.Body, &resp); err != nil {
			call.Failure(ErrInvalidJSON)
		} else if resp.ID != "" {
			s.createdIDs = append(s.createdIDs, resp.ID)
		}
	}
	s.record(ctx, call)
	return call
}

// record hands the call to the stats, unless it was cut short because the
// run itself is shutting down.
func (s *Session) record(ctx context.Context, call *Call) {
	if ctx.Err() != nil && errors.Is(call.Err, ctx.Err()) {
		return
	}
	s.sc.Stats.Record(call)
}

// ReadPaste fetches one of this user's pastes at random. With nothing
// created yet it does nothing and returns nil.
func (s *Session) ReadPaste(ctx context.Context) *Call {
	if len(s.createdIDs) == 0 {
		return nil
	}
	id := s.createdIDs[s.rng.Intn(len(s.createdIDs))]
	call := s.sc.Client.Get(ctx, readPath(id), ReadName)
	s.record(ctx, call)
	return call
}

// Step picks one task by weight and runs it inside a span named after it.
// It returns the task name and the call it made, if any.
func (s *Session) Step(ctx context.Context, count int64) (string, *Call) {
	i := s.rng.Weighted(s.weights)
	if i < 0 {
		return "", nil
	}
	t := s.tasks[i]

	ctx, span := s.sc.Sender.CreateTrace(ctx, t.name, count)
	call := t.run(ctx)
	if call == nil {
		span.AddField("skipped", true)
	} else {
		span.AddField("http.method", call.Method)
		span.AddField("http.route", call.Name)
		span.AddField("http.status_code", call.StatusCode)
		span.AddField("duration_ms", call.Duration.Milliseconds())
		if call.Failed() {
			span.AddField("error", call.Err.Error())
		}
	}
	span.Send()
	return t.name, call
}

// Wait returns how long to pause before the next step.
func (s *Session) Wait() time.Duration {
	return s.rng.Between(s.sc.WaitMin, s.sc.WaitMax)
}
