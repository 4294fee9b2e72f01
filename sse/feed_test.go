package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/rxkit/change"
	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/stream"
	"github.com/kbukum/rxkit/view"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFeed_SnapshotThenLive(t *testing.T) {
	hub := NewHub()
	subject := stream.NewSubject[change.Event[string]]()
	feed := NewFeed("letters", subject.Stream(), hub)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer feed.Stop(context.Background())

	subject.OnNext(change.Add(0, "a"))
	subject.OnNext(change.Add(1, "b"))

	server := httptest.NewServer(feed)
	t.Cleanup(server.Close)
	body := connect(t, server.URL)

	frames := readFrames(t, body, 4)
	if frames[0].event != EventTypeConnected {
		t.Fatalf("got %q, want connected", frames[0].event)
	}
	var connected ConnectedEvent
	if err := json.Unmarshal([]byte(frames[0].data), &connected); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	if connected.Topic != "view:letters" {
		t.Errorf("got topic %q, want view:letters", connected.Topic)
	}

	events := decodeChanges[string](t, frames[1:])
	if events[0].Kind != change.KindReset {
		t.Errorf("got %v, want reset first", events[0])
	}

	subject.OnNext(change.Remove(0, "a"))
	subject.OnNext(change.Add(1, "c"))
	events = append(events, decodeChanges[string](t, readFrames(t, body, 2))...)

	got, err := change.Replay(events)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !equalStrings(got, []string{"b", "c"}) {
		t.Errorf("got %v, want [b c]", got)
	}
	if !equalStrings(feed.Items(), got) {
		t.Errorf("feed items %v, client view %v", feed.Items(), got)
	}
}

func TestFeed_CompletedSourceStillServesSnapshot(t *testing.T) {
	hub := NewHub()
	feed := NewFeed("done", stream.Just(change.Add(0, 7), change.Add(1, 9)), hub)
	feed.Start(context.Background())

	if h := feed.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("got %s, want healthy", h.Status)
	}

	server := httptest.NewServer(feed)
	t.Cleanup(server.Close)
	frames := readFrames(t, connect(t, server.URL), 5)

	got, err := change.Replay(decodeChanges[int](t, frames[1:4]))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got) != 2 || got[0] != 7 || got[1] != 9 {
		t.Errorf("got %v, want [7 9]", got)
	}
	if frames[4].event != EventTypeCompleted {
		t.Errorf("got %q, want completed", frames[4].event)
	}
}

func TestFeed_InvalidEventDegrades(t *testing.T) {
	hub := NewHub()
	subject := stream.NewSubject[change.Event[string]]()
	feed := NewFeed("bad", subject.Stream(), hub)
	feed.Start(context.Background())

	watcher := NewClient("w", feed.Topic())
	hub.Register(watcher)

	subject.OnNext(change.Remove(3, "x"))

	h := feed.Health(context.Background())
	if h.Status != component.StatusDegraded {
		t.Errorf("got %s, want degraded", h.Status)
	}
	msg := <-watcher.Events()
	if msg.Event != EventTypeError {
		t.Fatalf("got %q, want error", msg.Event)
	}
	var payload ErrorEvent
	json.Unmarshal(msg.Data, &payload)
	if payload.Code != "INDEX_OUT_OF_RANGE" {
		t.Errorf("got code %q, want INDEX_OUT_OF_RANGE", payload.Code)
	}
	if subject.HasObservers() {
		t.Error("expected the feed to unsubscribe after failing")
	}
}

func TestFeed_SourceErrorBroadcast(t *testing.T) {
	hub := NewHub()
	subject := stream.NewSubject[change.Event[int]]()
	feed := NewFeed("err", subject.Stream(), hub)
	feed.Start(context.Background())

	watcher := NewClient("w", feed.Topic())
	hub.Register(watcher)
	subject.OnError(fmt.Errorf("upstream gone"))

	msg := <-watcher.Events()
	if msg.Event != EventTypeError || !strings.Contains(string(msg.Data), "upstream gone") {
		t.Errorf("unexpected frame %s %s", msg.Event, msg.Data)
	}
}

func TestFeed_RejectsInvalidClientID(t *testing.T) {
	feed := NewFeed("letters", stream.Never[change.Event[string]](), NewHub())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?client_id=not-a-uuid", http.NoBody)

	feed.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_INPUT") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestFeed_ClientIDFromQuery(t *testing.T) {
	hub := NewHub()
	feed := NewFeed("letters", stream.Never[change.Event[string]](), hub)
	server := httptest.NewServer(feed)
	t.Cleanup(server.Close)

	id := uuid.New().String()
	frames := readFrames(t, connect(t, server.URL+"?client_id="+id), 1)
	var connected ConnectedEvent
	json.Unmarshal([]byte(frames[0].data), &connected)
	if connected.ClientID != id {
		t.Errorf("got %q, want %q", connected.ClientID, id)
	}
	if hub.Client(id) == nil {
		t.Error("expected client registered under its id")
	}
}

func TestServer_MountsOrderedView(t *testing.T) {
	list := view.NewList[int]()
	list.Append(5)
	list.Append(1)

	hub := NewHub()
	feed := NewFeed("sorted", view.OrderBy(list.Changes(), func(v int) int { return v }), hub)
	feed.Start(context.Background())
	defer feed.Stop(context.Background())

	srv := NewServer(config.SSEConfig{Addr: "127.0.0.1:0", KeepAlive: time.Second}, hub)
	srv.Mount(feed)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	routes := srv.Routes()
	if len(routes) != 1 || routes[0].Path != "/views/sorted" || routes[0].Method != http.MethodGet {
		t.Errorf("unexpected routes %v", routes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	body := connectCtx(t, ctx, "http://"+srv.Addr()+"/views/sorted")
	frames := readFrames(t, body, 4)
	list.Append(3)
	frames = append(frames, readFrames(t, body, 1)...)

	got, err := change.Replay(decodeChanges[int](t, frames[1:]))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Errorf("got %v, want [1 3 5]", got)
	}

	if h := srv.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("got %s, want healthy", h.Status)
	}
	cancel()
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("stop: %v", err)
	}
}

type frame struct {
	event string
	data  string
}

func connect(t *testing.T, url string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return connectCtx(t, ctx, url)
}

func connectCtx(t *testing.T, ctx context.Context, url string) *bufio.Reader {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("got Content-Type %q, want text/event-stream", ct)
	}
	return bufio.NewReader(resp.Body)
}

// readFrames reads n SSE frames, skipping keep-alive comments.
func readFrames(t *testing.T, r *bufio.Reader, n int) []frame {
	t.Helper()
	var frames []frame
	var cur frame
	for len(frames) < n {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read after %d frames: %v", len(frames), err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if cur.data != "" || cur.event != "" {
				frames = append(frames, cur)
			}
			cur = frame{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		}
	}
	return frames
}

func decodeChanges[T any](t *testing.T, frames []frame) []change.Event[T] {
	t.Helper()
	out := make([]change.Event[T], 0, len(frames))
	for _, f := range frames {
		if f.event != EventTypeChange {
			t.Fatalf("got %q frame, want change", f.event)
		}
		var e change.Event[T]
		if err := json.Unmarshal([]byte(f.data), &e); err != nil {
			t.Fatalf("decode %s: %v", f.data, err)
		}
		out = append(out, e)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
