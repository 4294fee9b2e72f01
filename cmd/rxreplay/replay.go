package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/rxkit/change"
	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
	"github.com/kbukum/rxkit/sse"
	"github.com/kbukum/rxkit/stream"
	"github.com/kbukum/rxkit/view"
)

type orderGroup = view.Grouping[string, Order]

// liveView is one subscribed view of the replayed list.
type liveView struct {
	spec   ViewSpec
	orders *change.Mirror[Order]
	groups *change.Mirror[*orderGroup]
	box    *stream.Box
}

// Replayer owns the order list, the views derived from it and the
// subscriptions that keep them current.
type Replayer struct {
	list  *view.List[Order]
	views []*liveView
	opts  []observability.InstrumentOption
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithInstrumentation traces and meters every view subscription.
func WithInstrumentation(opts ...observability.InstrumentOption) ReplayerOption {
	return func(r *Replayer) { r.opts = append(r.opts, opts...) }
}

// NewReplayer subscribes to every view declared by script.
func NewReplayer(script *Script, opts ...ReplayerOption) (*Replayer, error) {
	r := &Replayer{list: view.NewList[Order]()}
	for _, opt := range opts {
		opt(r)
	}
	for _, spec := range script.Views {
		lv := &liveView{spec: spec}
		switch spec.Kind {
		case KindOrder:
			s, err := r.ordered(spec)
			if err != nil {
				r.Close()
				return nil, err
			}
			lv.orders = change.NewMirror[Order]()
			lv.box = stream.Subscribe(s, stream.Observer[change.Event[Order]](lv.orders))
		case KindGroup:
			s := r.grouped(spec)
			lv.groups = change.NewMirror[*orderGroup]()
			lv.box = stream.Subscribe(s, stream.Observer[change.Event[*orderGroup]](lv.groups))
		default:
			r.Close()
			return nil, errors.InvalidInput("kind", "unknown view kind "+spec.Kind)
		}
		r.views = append(r.views, lv)
	}
	return r, nil
}

// List returns the replayed list.
func (r *Replayer) List() *view.List[Order] { return r.list }

func (r *Replayer) ordered(spec ViewSpec) (*stream.Stream[change.Event[Order]], error) {
	src := r.list.Changes()
	var s *stream.Stream[change.Event[Order]]
	switch spec.Key {
	case "total":
		s = orderBy(src, func(o Order) float64 { return o.Total }, spec.Descending)
	case "id":
		s = orderBy(src, func(o Order) string { return o.ID }, spec.Descending)
	case "region":
		s = orderBy(src, func(o Order) string { return o.Region }, spec.Descending)
	default:
		return nil, errors.InvalidInput("key", "unknown order key "+spec.Key)
	}
	return observability.Instrument(s, "view."+spec.Name, r.opts...), nil
}

func orderBy[K float64 | string](src *stream.Stream[change.Event[Order]], key func(Order) K, desc bool) *stream.Stream[change.Event[Order]] {
	if desc {
		return view.OrderByDescending(src, key)
	}
	return view.OrderBy(src, key)
}

func (r *Replayer) grouped(spec ViewSpec) *stream.Stream[change.Event[*orderGroup]] {
	key := func(o Order) string { return o.Region }
	if spec.Key == "id" {
		key = func(o Order) string { return o.ID }
	}
	return observability.Instrument(view.GroupBy(r.list.Changes(), key), "view."+spec.Name, r.opts...)
}

// Apply performs one step on the list.
func (r *Replayer) Apply(step Step) error {
	switch step.Op {
	case OpAppend:
		r.list.Append(step.Item)
		return nil
	case OpInsert:
		return r.list.Insert(step.Index, step.Item)
	case OpSet:
		return r.list.Set(step.Index, step.Item)
	case OpRemove:
		return r.list.RemoveAt(step.Index)
	case OpReset:
		r.list.Reset(step.Items...)
		return nil
	default:
		return errors.InvalidInput("op", "unknown step "+step.Op)
	}
}

// Run applies steps in order, waiting pace between them. It stops at the
// first failing step or when ctx is done.
func (r *Replayer) Run(ctx context.Context, steps []Step, pace time.Duration) error {
	log := logger.Get("rxreplay")
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		log.Debug("step applied", logger.Fields("step", i, "op", step.Op, "size", r.list.Len()))
		if pace > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pace):
			}
		}
	}
	return r.Err()
}

// Err returns the first failure of any view.
func (r *Replayer) Err() error {
	for _, lv := range r.views {
		var err error
		if lv.orders != nil {
			err = lv.orders.Err()
		} else {
			err = lv.groups.Err()
		}
		if err != nil {
			return fmt.Errorf("view %s: %w", lv.spec.Name, err)
		}
	}
	return nil
}

// Close disposes every view subscription.
func (r *Replayer) Close() {
	for _, lv := range r.views {
		if lv.box != nil {
			lv.box.Dispose()
		}
	}
}

// Summary describes the list after a replay.
type Summary struct {
	Count   int
	Total   float64
	Largest *Order
	Regions []string
}

// Summarize folds the current list with the stream aggregates.
func (r *Replayer) Summarize(ctx context.Context) (Summary, error) {
	items := stream.FromSlice(r.list.Snapshot())

	var sum Summary
	var err error
	if sum.Count, err = stream.Await(ctx, stream.Count(items)); err != nil {
		return sum, err
	}
	if sum.Count == 0 {
		return sum, nil
	}
	totals := stream.Map(items, func(o Order) float64 { return o.Total })
	if sum.Total, err = stream.Await(ctx, stream.Sum(totals)); err != nil {
		return sum, err
	}
	largest, err := stream.Await(ctx, stream.MaxBy(items, func(o Order) float64 { return o.Total }))
	if err != nil {
		return sum, err
	}
	sum.Largest = &largest
	regions := stream.Distinct(stream.Map(items, func(o Order) string { return o.Region }))
	if sum.Regions, err = stream.ToSlice(ctx, regions); err != nil {
		return sum, err
	}
	return sum, nil
}

// Print writes every view and the summary to w.
func (r *Replayer) Print(ctx context.Context, w io.Writer) error {
	for _, lv := range r.views {
		desc := ""
		if lv.spec.Descending {
			desc = " desc"
		}
		fmt.Fprintf(w, "view %s (%s %s%s)\n", lv.spec.Name, lv.spec.Kind, lv.spec.Key, desc)
		if lv.orders != nil {
			for i, o := range lv.orders.Items() {
				fmt.Fprintf(w, "  %d  %s\n", i, o)
			}
			continue
		}
		for _, g := range lv.groups.Items() {
			members := g.Snapshot()
			ids := make([]string, len(members))
			for i, o := range members {
				ids[i] = o.ID
			}
			fmt.Fprintf(w, "  %s: %s\n", g.Key(), strings.Join(ids, ", "))
		}
	}

	sum, err := r.Summarize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "orders %d total %.2f", sum.Count, sum.Total)
	if sum.Largest != nil {
		fmt.Fprintf(w, " largest %s regions %s", sum.Largest.ID, strings.Join(sum.Regions, ","))
	}
	fmt.Fprintln(w)
	return nil
}

// ServedView is a feed the SSE server can mount and the registry can run.
type ServedView interface {
	component.Component
	sse.MountedFeed
}

// Feeds builds one SSE feed per view. Group views publish the list of
// their group keys.
func (r *Replayer) Feeds(hub *sse.Hub, opts ...sse.FeedOption) []ServedView {
	feeds := make([]ServedView, 0, len(r.views))
	for _, lv := range r.views {
		if lv.spec.Kind == KindOrder {
			s, _ := r.ordered(lv.spec)
			feeds = append(feeds, sse.NewFeed(lv.spec.Name, s, hub, opts...))
			continue
		}
		keys := stream.Map(r.grouped(lv.spec), groupKeyEvent)
		feeds = append(feeds, sse.NewFeed(lv.spec.Name, keys, hub, opts...))
	}
	return feeds
}

func groupKeyEvent(e change.Event[*orderGroup]) change.Event[string] {
	out := change.Event[string]{Kind: e.Kind, Index: e.Index}
	if e.Value != nil {
		out.Value = e.Value.Key()
	}
	if e.OldValue != nil {
		out.OldValue = e.OldValue.Key()
	}
	return out
}

// Settled logs the size of each view once edits have been quiet for the
// given period.
func (r *Replayer) Settled(quiet time.Duration, opts ...stream.ThrottleOption) []stream.Disposable {
	log := logger.Get("rxreplay")
	subs := make([]stream.Disposable, 0, len(r.views))
	for _, lv := range r.views {
		settled := stream.Throttle(r.list.Changes(), quiet, opts...)
		subs = append(subs, stream.SubscribeFuncs(settled, func(change.Event[Order]) {
			log.Info("view settled", logger.Fields(logger.FieldView, lv.spec.Name, "size", lv.size()))
		}, nil, nil))
	}
	return subs
}

func (lv *liveView) size() int {
	if lv.orders != nil {
		return lv.orders.Len()
	}
	return lv.groups.Len()
}
