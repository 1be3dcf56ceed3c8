package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSpan struct {
	name   string
	count  int64
	fields map[string]any
	sent   bool
}

func (s *recordedSpan) AddField(key string, val any) {
	s.fields[key] = val
}

func (s *recordedSpan) Send() {
	s.sent = true
}

type recordingSender struct {
	mut   sync.Mutex
	spans []*recordedSpan
}

func (r *recordingSender) CreateTrace(ctx context.Context, name string, count int64) (context.Context, Sendable) {
	r.mut.Lock()
	defer r.mut.Unlock()
	span := &recordedSpan{name: name, count: count, fields: make(map[string]any)}
	r.spans = append(r.spans, span)
	return ctx, span
}

func (r *recordingSender) Close() {}

// fakeAPI serves the paste API from a function and remembers every request.
type fakeAPI struct {
	mut      sync.Mutex
	requests []*http.Request
	bodies   []string
	create   func(n int) (int, string)
	delay    time.Duration
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mut.Lock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))
	n := len(f.requests)
	f.mut.Unlock()

	time.Sleep(f.delay)

	switch {
	case r.Method == http.MethodPost && r.URL.Path == PastePath:
		status, resp := f.create(n)
		w.WriteHeader(status)
		io.WriteString(w, resp)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, PastePath+"/"):
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":"x"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) paths() []string {
	f.mut.Lock()
	defer f.mut.Unlock()
	paths := make([]string, len(f.requests))
	for i, r := range f.requests {
		paths[i] = r.Method + " " + r.URL.Path
	}
	return paths
}

func respond(status int, body string) func(int) (int, string) {
	return func(int) (int, string) { return status, body }
}

func newTestScenario(t *testing.T, api *fakeAPI, profile Profile) (*Scenario, *recordingSender) {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	sender := new(recordingSender)
	return &Scenario{
		Client:  NewClient(u, 5*time.Second, 1),
		Stats:   NewStats(prometheus.NewRegistry()),
		Sender:  sender,
		Profile: profile,
		Weights: Weights{Create: 1, Read: 5},
		Log:     newLoggerTo(io.Discard, logrus.WarnLevel),
	}, sender
}

func TestCreateThenRead(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `{"id":"abc123"}`)}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("create-then-read")

	call := session.CreatePaste(t.Context())
	require.NotNil(t, call)
	assert.False(t, call.Failed())
	assert.Equal(t, []string{"abc123"}, session.CreatedIDs())

	call = session.ReadPaste(t.Context())
	require.NotNil(t, call)
	assert.Equal(t, http.StatusOK, call.StatusCode)
	assert.Equal(t, ReadName, call.Name)

	assert.Equal(t, []string{"POST /api/v1/paste", "GET /api/v1/paste/abc123"}, api.paths())

	entries := sc.Stats.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "/api/v1/paste", entries[0].Name)
	assert.Equal(t, "/api/v1/paste/[id]", entries[1].Name)
}

func TestCreateSendsJSON(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `{"id":"abc123"}`)}
	sc, _ := newTestScenario(t, api, profiles["traced"])
	session := sc.NewSession("json")

	session.CreatePaste(t.Context())

	require.Len(t, api.requests, 1)
	assert.Equal(t, "application/json", api.requests[0].Header.Get("Content-Type"))

	var req PasteRequest
	require.NoError(t, json.Unmarshal([]byte(api.bodies[0]), &req))
	assert.True(t, strings.HasPrefix(req.Content, ContentPrefix))
	assert.Len(t, req.Content, len(ContentPrefix)+ContentLength)
	assert.Contains(t, profiles["traced"].ExpiresIn, req.ExpiresIn)
	assert.Contains(t, syntaxes, req.Syntax)
}

func TestCreateInvalidJSON(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `not-json`)}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("not-json")

	call := session.CreatePaste(t.Context())

	require.ErrorIs(t, call.Err, ErrInvalidJSON)
	assert.EqualError(t, call.Err, "Response is not valid JSON")
	assert.Empty(t, session.CreatedIDs())

	failures := sc.Stats.Failures()
	assert.Equal(t, int64(1), failures[FailureKey{Method: http.MethodPost, Name: PastePath, Message: "Response is not valid JSON"}])
}

func TestCreateServerError(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusInternalServerError, `{"id":"nope"}`)}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("500")

	var call *Call
	require.NotPanics(t, func() {
		call = session.CreatePaste(t.Context())
	})

	require.ErrorIs(t, call.Err, ErrHTTPStatus)
	assert.Empty(t, session.CreatedIDs())

	entries := sc.Stats.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Failures)
}

func TestCreateWithoutID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing", body: `{"url":"/p/x"}`},
		{name: "empty", body: `{"id":""}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			api := &fakeAPI{create: respond(http.StatusCreated, test.body)}
			sc, _ := newTestScenario(t, api, profiles["basic"])
			session := sc.NewSession(test.name)

			call := session.CreatePaste(t.Context())

			assert.False(t, call.Failed())
			assert.Empty(t, session.CreatedIDs())
		})
	}
}

func TestReadWithoutPastes(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `{"id":"abc123"}`)}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("empty")

	call := session.ReadPaste(t.Context())

	assert.Nil(t, call)
	assert.Empty(t, api.paths())
	assert.Empty(t, sc.Stats.Entries())
}

func TestCreatedIDsOnlyFromCreated(t *testing.T) {
	// every third create succeeds; the others answer with ids that must
	// never be remembered
	api := &fakeAPI{create: func(n int) (int, string) {
		switch n % 3 {
		case 0:
			return http.StatusCreated, fmt.Sprintf(`{"id":"good%d"}`, n)
		case 1:
			return http.StatusOK, fmt.Sprintf(`{"id":"ok%d"}`, n)
		default:
			return http.StatusBadRequest, fmt.Sprintf(`{"id":"bad%d"}`, n)
		}
	}}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("only-created")

	for i := 0; i < 30; i++ {
		session.CreatePaste(t.Context())
	}

	ids := session.CreatedIDs()
	assert.Len(t, ids, 10)
	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id, "good"), id)
	}
}

func TestReadPicksCreatedIDs(t *testing.T) {
	api := &fakeAPI{create: func(n int) (int, string) {
		return http.StatusCreated, fmt.Sprintf(`{"id":"p%d"}`, n)
	}}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("picks")

	for i := 0; i < 5; i++ {
		session.CreatePaste(t.Context())
	}
	created := make(map[string]bool)
	for _, id := range session.CreatedIDs() {
		created[PastePath+"/"+id] = true
	}

	for i := 0; i < 50; i++ {
		call := session.ReadPaste(t.Context())
		require.NotNil(t, call)
	}

	for _, p := range api.paths()[5:] {
		path := strings.TrimPrefix(p, "GET ")
		assert.True(t, created[path], path)
	}

	entries := sc.Stats.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, ReadName, entries[1].Name)
	assert.Equal(t, int64(50), entries[1].Requests)
}

func TestCanceledCallsAreNotRecorded(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `{"id":"abc123"}`)}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	session := sc.NewSession("canceled")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	call := session.CreatePaste(ctx)

	require.ErrorIs(t, call.Err, context.Canceled)
	assert.Empty(t, sc.Stats.Entries())
}

func TestStepTracesEachTask(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `{"id":"abc123"}`)}

	t.Run("create", func(t *testing.T) {
		sc, sender := newTestScenario(t, api, profiles["traced"])
		sc.Weights = Weights{Create: 1}
		session := sc.NewSession("step-create")

		name, call := session.Step(t.Context(), 7)

		assert.Equal(t, CreateTask, name)
		require.NotNil(t, call)
		require.Len(t, sender.spans, 1)
		span := sender.spans[0]
		assert.Equal(t, "create_paste", span.name)
		assert.Equal(t, int64(7), span.count)
		assert.Equal(t, http.StatusCreated, span.fields["http.status_code"])
		assert.True(t, span.sent)
	})

	t.Run("read without pastes", func(t *testing.T) {
		sc, sender := newTestScenario(t, api, profiles["traced"])
		sc.Weights = Weights{Read: 1}
		session := sc.NewSession("step-read")

		name, call := session.Step(t.Context(), 1)

		assert.Equal(t, ReadTask, name)
		assert.Nil(t, call)
		require.Len(t, sender.spans, 1)
		assert.Equal(t, "read_paste", sender.spans[0].name)
		assert.Equal(t, true, sender.spans[0].fields["skipped"])
		assert.True(t, sender.spans[0].sent)
	})
}

func TestStepFollowsWeights(t *testing.T) {
	api := &fakeAPI{create: respond(http.StatusCreated, `{"id":"abc123"}`)}
	sc, _ := newTestScenario(t, api, profiles["basic"])
	sc.Sender = NewSenderDummy(sc.Log)
	session := sc.NewSession("weights")

	counts := map[string]int{}
	for i := 0; i < 600; i++ {
		name, _ := session.Step(t.Context(), int64(i+1))
		counts[name]++
	}

	// 1:5 odds; the bounds are loose enough never to flake
	assert.InDelta(t, 100, counts[CreateTask], 45)
	assert.InDelta(t, 500, counts[ReadTask], 45)
}
