package cqrs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmick/go-tmick/framework/container"
)

type greet struct{ Name string }
type countGreets struct{}
type greeted struct{ Name string }
type departed struct{ Name string }

// greetHandler answers both the greet command and the countGreets query.
type greetHandler struct {
	mu    sync.Mutex
	count int
}

func (h *greetHandler) Handle(ctx context.Context, msg any) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch m := msg.(type) {
	case greet:
		h.count++
		return "hello " + m.Name, nil
	case countGreets:
		return h.count, nil
	}
	return nil, errors.New("unexpected message")
}

// recorder is an event handler appending a label to a shared journal.
type recorder struct {
	label   string
	journal *journal
	delay   time.Duration
	fail    error
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

func (r *recorder) Handle(ctx context.Context, event any) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.fail != nil {
		return r.fail
	}
	switch e := event.(type) {
	case greeted:
		r.journal.add(r.label + ":" + e.Name)
	case departed:
		r.journal.add(r.label + ":" + e.Name)
	}
	return nil
}

func registerInstance(c *container.Container, name string, v any) container.Identifier {
	tok := container.NewToken(name)
	c.RegisterInstance(tok, v)
	return tok
}

// ── Command / query dispatch ─────────────────────────────────────────────────

func TestCommandDispatcher_DispatchesToHandler(t *testing.T) {
	t.Parallel()

	c := container.New()
	id := registerInstance(c, "greet.handler", &greetHandler{})
	d := NewCommandDispatcher(c)
	require.NoError(t, d.RegisterHandler("greet", id))

	result, err := d.Dispatch(context.Background(), greet{Name: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "hello ada", result)
}

func TestCommandDispatcher_NoHandlerMessage(t *testing.T) {
	t.Parallel()

	d := NewCommandDispatcher(container.New())
	_, err := d.Dispatch(context.Background(), greet{Name: "ada"})
	require.Error(t, err)
	assert.Equal(t, "No handler registered for command 'greet'", err.Error())
}

func TestCommandDispatcher_DuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	c := container.New()
	id := registerInstance(c, "greet.handler", &greetHandler{})
	d := NewCommandDispatcher(c)
	require.NoError(t, d.RegisterHandler("greet", id))
	err := d.RegisterHandler("greet", id)

	var dup DuplicateHandlerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "greet", dup.Target)
}

func TestCommandDispatcher_HandlerErrorPropagatesUnchanged(t *testing.T) {
	t.Parallel()

	c := container.New()
	boom := errors.New("boom")
	id := registerInstance(c, "failing.handler", commandFunc(func(ctx context.Context, cmd any) (any, error) {
		return nil, boom
	}))
	d := NewCommandDispatcher(c)
	require.NoError(t, d.RegisterHandler("greet", id))

	_, err := d.Dispatch(context.Background(), greet{})
	assert.Same(t, boom, err)
}

type commandFunc func(ctx context.Context, cmd any) (any, error)

func (f commandFunc) Handle(ctx context.Context, cmd any) (any, error) { return f(ctx, cmd) }

func TestQueryDispatcher_NoHandlerMessage(t *testing.T) {
	t.Parallel()

	d := NewQueryDispatcher(container.New())
	_, err := d.Dispatch(context.Background(), countGreets{})
	require.Error(t, err)
	assert.Equal(t, "No handler registered for query 'countGreets'", err.Error())
}

func TestQueryDispatcher_ReturnsTypedResult(t *testing.T) {
	t.Parallel()

	c := container.New()
	h := &greetHandler{}
	id := registerInstance(c, "greet.handler", h)

	commands := NewCommandDispatcher(c)
	queries := NewQueryDispatcher(c)
	require.NoError(t, commands.RegisterHandler("greet", id))
	require.NoError(t, queries.RegisterHandler("countGreets", id))

	_, err := commands.Dispatch(context.Background(), greet{Name: "a"})
	require.NoError(t, err)
	_, err = commands.Dispatch(context.Background(), greet{Name: "b"})
	require.NoError(t, err)

	count, err := queries.Dispatch(context.Background(), countGreets{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDispatcher_WrongHandlerShape(t *testing.T) {
	t.Parallel()

	c := container.New()
	id := registerInstance(c, "not-a-handler", "just a string")
	d := NewCommandDispatcher(c)
	require.NoError(t, d.RegisterHandler("greet", id))

	_, err := d.Dispatch(context.Background(), greet{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want cqrs.CommandHandler")
}

// ── Event dispatch ───────────────────────────────────────────────────────────

func TestEventDispatcher_FanOutInvokesAllHandlersOnce(t *testing.T) {
	t.Parallel()

	c := container.New()
	j := &journal{}
	d := NewEventDispatcher(c)
	d.RegisterHandler("greeted", registerInstance(c, "h1", &recorder{label: "audit", journal: j, delay: 5 * time.Millisecond}))
	d.RegisterHandler("greeted", registerInstance(c, "h2", &recorder{label: "stats", journal: j}))

	err := d.Dispatch(context.Background(), greeted{Name: "ada"})
	require.NoError(t, err)

	// both handlers have completed by the time Dispatch returns
	entries := j.all()
	assert.ElementsMatch(t, []string{"audit:ada", "stats:ada"}, entries)
}

func TestEventDispatcher_EventsProcessedStrictlyInOrder(t *testing.T) {
	t.Parallel()

	c := container.New()
	j := &journal{}
	d := NewEventDispatcher(c)
	// the slow handler of event 1 must finish before event 2's handlers start
	d.RegisterHandler("greeted", registerInstance(c, "slow", &recorder{label: "slow", journal: j, delay: 20 * time.Millisecond}))
	d.RegisterHandler("greeted", registerInstance(c, "fast", &recorder{label: "fast", journal: j}))
	d.RegisterHandler("departed", registerInstance(c, "next", &recorder{label: "next", journal: j}))

	err := d.Dispatch(context.Background(),
		greeted{Name: "one"},
		departed{Name: "two"},
	)
	require.NoError(t, err)

	entries := j.all()
	require.Len(t, entries, 3)
	assert.Equal(t, "next:two", entries[2])
	assert.ElementsMatch(t, []string{"slow:one", "fast:one"}, entries[:2])
}

func TestEventDispatcher_UnknownEventTypeSkipped(t *testing.T) {
	t.Parallel()

	d := NewEventDispatcher(container.New())
	err := d.Dispatch(context.Background(), greeted{Name: "nobody"})
	assert.NoError(t, err)
}

func TestEventDispatcher_HandlerFailureAbortsRemainingEvents(t *testing.T) {
	t.Parallel()

	c := container.New()
	j := &journal{}
	boom := errors.New("handler blew up")
	d := NewEventDispatcher(c)
	d.RegisterHandler("greeted", registerInstance(c, "ok", &recorder{label: "ok", journal: j}))
	d.RegisterHandler("greeted", registerInstance(c, "bad", &recorder{label: "bad", journal: j, fail: boom}))
	d.RegisterHandler("departed", registerInstance(c, "later", &recorder{label: "later", journal: j}))

	err := d.Dispatch(context.Background(),
		greeted{Name: "one"},
		departed{Name: "two"},
	)
	require.ErrorIs(t, err, boom)

	for _, entry := range j.all() {
		assert.NotEqual(t, "later:two", entry, "subsequent events must not be dispatched after a failure")
	}
}

func TestEventDispatcher_DuplicateHandlersAllowed(t *testing.T) {
	t.Parallel()

	c := container.New()
	j := &journal{}
	id := registerInstance(c, "twice", &recorder{label: "twice", journal: j})
	d := NewEventDispatcher(c)
	d.RegisterHandler("greeted", id)
	d.RegisterHandler("greeted", id)

	require.NoError(t, d.Dispatch(context.Background(), greeted{Name: "x"}))
	assert.Len(t, j.all(), 2)
}
