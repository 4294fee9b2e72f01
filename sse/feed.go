package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/rxkit/change"
	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/stream"
	"github.com/kbukum/rxkit/validation"
)

// ClientIDParam is the optional query parameter carrying a client chosen
// UUID, used to replace a previous connection of the same client.
const ClientIDParam = "client_id"

// FeedOption configures a Feed.
type FeedOption func(*feedOptions)

type feedOptions struct {
	keepAlive time.Duration
	buffer    int
}

// WithKeepAlive sets the keep-alive comment interval.
func WithKeepAlive(d time.Duration) FeedOption {
	return func(o *feedOptions) { o.keepAlive = d }
}

// WithClientBuffer sets how many live frames a client may lag behind.
func WithClientBuffer(n int) FeedOption {
	return func(o *feedOptions) { o.buffer = n }
}

// Feed publishes a change stream to SSE clients. It is an observer of the
// stream, an http.Handler for clients and a lifecycle component.
type Feed[T any] struct {
	name   string
	source *stream.Stream[change.Event[T]]
	hub    *Hub
	opts   feedOptions

	mu      sync.Mutex
	mirror  *change.Mirror[T]
	box     *stream.Box
	started bool
	done    bool
	err     error
}

var (
	_ component.Component   = (*Feed[int])(nil)
	_ component.Describable = (*Feed[int])(nil)
	_ http.Handler          = (*Feed[int])(nil)
)

// NewFeed creates a feed for source. Nothing is subscribed until Start.
func NewFeed[T any](name string, source *stream.Stream[change.Event[T]], hub *Hub, opts ...FeedOption) *Feed[T] {
	o := feedOptions{keepAlive: DefaultKeepAlive, buffer: DefaultClientBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	return &Feed[T]{
		name:   name,
		source: source,
		hub:    hub,
		opts:   o,
		mirror: change.NewMirror[T](),
	}
}

// Name returns the component name.
func (f *Feed[T]) Name() string { return "feed:" + f.name }

// View returns the view name the feed was created with.
func (f *Feed[T]) View() string { return f.name }

// Topic is the hub topic the feed broadcasts on.
func (f *Feed[T]) Topic() string { return "view:" + f.name }

// Start subscribes to the source.
func (f *Feed[T]) Start(_ context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = true
	f.mu.Unlock()

	// The source may deliver synchronously, so subscribe without the lock.
	box := stream.Subscribe(f.source, stream.Observer[change.Event[T]](f))

	f.mu.Lock()
	f.box = box
	failed := f.err != nil
	f.mu.Unlock()
	if failed {
		box.Dispose()
	}
	return nil
}

// Stop disposes the subscription. Connected clients stay until the hub
// is stopped.
func (f *Feed[T]) Stop(_ context.Context) error {
	f.mu.Lock()
	box := f.box
	f.mu.Unlock()
	if box != nil {
		box.Dispose()
	}
	return nil
}

// Health reports degraded once the source has failed.
func (f *Feed[T]) Health(_ context.Context) component.Health {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := component.Health{Name: f.Name(), Status: component.StatusHealthy}
	switch {
	case f.err != nil:
		h.Status = component.StatusDegraded
		h.Message = f.err.Error()
	case f.done:
		h.Message = fmt.Sprintf("completed with %d items", f.mirror.Len())
	default:
		h.Message = fmt.Sprintf("%d items", f.mirror.Len())
	}
	return h
}

// Describe returns the startup summary line.
func (f *Feed[T]) Describe() component.Description {
	return component.Description{
		Name:    "SSE feed " + f.name,
		Type:    "sse",
		Details: "topic " + f.Topic(),
	}
}

// Items returns the current contents of the published list.
func (f *Feed[T]) Items() []T { return f.mirror.Items() }

func (f *Feed[T]) OnNext(e change.Event[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.mirror.OnNext(e)
	if err := f.mirror.Err(); err != nil {
		f.terminate(err)
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		f.terminate(errors.Internal(err))
		return
	}
	f.hub.Broadcast(f.Topic(), Message{Event: EventTypeChange, Data: data})
}

func (f *Feed[T]) OnError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.done {
		f.terminate(err)
	}
}

func (f *Feed[T]) OnCompleted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.done = true
	f.hub.Broadcast(f.Topic(), Message{Event: EventTypeCompleted, Data: []byte("{}")})
}

// terminate must be called with f.mu held.
func (f *Feed[T]) terminate(err error) {
	f.done, f.err = true, err
	log().Warn("feed source failed", logger.Fields(
		logger.FieldView, f.name,
		logger.FieldError, err.Error(),
	))
	f.hub.Broadcast(f.Topic(), Message{Event: EventTypeError, Data: errorPayload(err)})
	if f.box != nil {
		f.box.Dispose()
	}
}

// ServeHTTP streams the view to one client: a reset, the current items
// as add events, then every later change.
func (f *Feed[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	id := uuid.New()
	if raw := r.URL.Query().Get(ClientIDParam); raw != "" {
		parsed, err := validation.ParseUUID(ClientIDParam, raw)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write(errorPayload(err))
			return
		}
		id = parsed
	}

	client, err := f.connect(id.String())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	ServeSSE(f.hub, w, r, client, f.opts.keepAlive)
}

// connect queues the snapshot for a new client and registers it while
// holding the feed lock, so no change is missed or sent twice.
func (f *Feed[T]) connect(id string) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := change.Snapshot(f.mirror.Items())
	client := NewClient(id, f.Topic(),
		WithBuffer(len(snapshot)+f.opts.buffer+1),
		WithMetadata("view", f.name),
	)
	for _, e := range snapshot {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, errors.Internal(err)
		}
		client.Send(Message{Event: EventTypeChange, Data: data})
	}
	switch {
	case f.err != nil:
		client.Send(Message{Event: EventTypeError, Data: errorPayload(f.err)})
	case f.done:
		client.Send(Message{Event: EventTypeCompleted, Data: []byte("{}")})
	}

	if err := f.hub.Register(client); err != nil {
		return nil, err
	}
	return client, nil
}

func errorPayload(err error) []byte {
	ev := ErrorEvent{Message: err.Error()}
	if appErr, ok := errors.AsAppError(err); ok {
		ev.Code = string(appErr.Code)
		ev.Message = appErr.Message
	}
	data, _ := json.Marshal(ev)
	return data
}
