/*
Package bench exercises [list.List] at scale.

A run builds several independent lists in parallel and drives every list
operation over each of them:

  - push: N pushes onto an empty list.
  - peek: Peek and PeekMut agree on the front value.
  - iter: a borrowing pass sees N elements in LIFO order and leaves the list intact.
  - iter_mut: a mutable pass increments every element in place.
  - drain: the consuming iterator yields the incremented values in LIFO order.
  - drop: a rebuilt list of N elements is torn down iteratively.

Any violated property fails the run with an error naming the list and phase.
*/
package bench

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/percona/percona-linkstack/config"
	"github.com/percona/percona-linkstack/errors"
	"github.com/percona/percona-linkstack/list"
	"github.com/percona/percona-linkstack/log"
	"github.com/percona/percona-linkstack/metrics"
	"github.com/percona/percona-linkstack/util"
)

var (
	ErrInvalidSize  = errors.New("invalid size")
	ErrInvalidLists = errors.New("invalid number of lists")
	ErrViolation    = errors.New("property violated")
)

// Phase is a step of a bench run.
type Phase string

const (
	PhasePush    Phase = "push"
	PhasePeek    Phase = "peek"
	PhaseIter    Phase = "iter"
	PhaseIterMut Phase = "iter_mut"
	PhaseDrain   Phase = "drain"
	PhaseDrop    Phase = "drop"
)

// Phases lists all phases in execution order.
//
//nolint:gochecknoglobals
var Phases = []Phase{PhasePush, PhasePeek, PhaseIter, PhaseIterMut, PhaseDrain, PhaseDrop}

// Options configures a bench run.
type Options struct {
	Size    int           // Elements pushed onto each list
	Lists   int           // Number of lists exercised in parallel
	Timeout time.Duration // Bound for the whole run. Zero means no bound
}

// Validate checks the options against the configured limits.
func (o Options) Validate() error {
	if o.Size <= 0 || o.Size > config.MaxBenchSize {
		return errors.Wrapf(ErrInvalidSize, "%d is outside [1 - %d]", o.Size, config.MaxBenchSize)
	}

	if o.Lists <= 0 || o.Lists > config.MaxBenchLists {
		return errors.Wrapf(ErrInvalidLists, "%d is outside [1 - %d]", o.Lists, config.MaxBenchLists)
	}

	return nil
}

// Report summarizes a bench run.
type Report struct {
	Size     int
	Lists    int
	Elements int           // Total elements pushed across all lists and phases
	Duration time.Duration // Wall time of the run
	Phases   map[Phase]time.Duration
}

// String returns a human readable summary.
func (r *Report) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d list(s) x %s elements, %s elements total in %s",
		r.Lists, humanize.Comma(int64(r.Size)), humanize.Comma(int64(r.Elements)),
		r.Duration.Round(time.Millisecond))

	for _, phase := range Phases {
		fmt.Fprintf(&sb, "\n  %-8s %s", phase, r.Phases[phase].Round(time.Microsecond))
	}

	return sb.String()
}

// Run executes a bench with the given options.
func Run(ctx context.Context, opts Options) (*Report, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	lg := log.New("bench").With(log.Int("size", opts.Size), log.Int("lists", opts.Lists))
	ctx = lg.WithContext(ctx)

	rep := &Report{
		Size:   opts.Size,
		Lists:  opts.Lists,
		Phases: make(map[Phase]time.Duration, len(Phases)),
	}

	var mu sync.Mutex

	startedAt := time.Now()

	err = util.CtxWithTimeout(ctx, opts.Timeout, func(ctx context.Context) error {
		grp, grpCtx := errgroup.WithContext(ctx)
		grp.SetLimit(runtime.NumCPU())

		for i := range opts.Lists {
			grp.Go(func() error {
				timings, err := runList(log.WithAttrs(grpCtx, log.Int("list", i)), opts.Size)
				if err != nil {
					return errors.Wrapf(err, "list %d", i)
				}

				mu.Lock()
				for phase, dur := range timings {
					rep.Phases[phase] += dur
				}
				rep.Elements += 2 * opts.Size
				mu.Unlock()

				return nil
			})
		}

		return grp.Wait() //nolint:wrapcheck
	})

	rep.Duration = time.Since(startedAt)
	metrics.RecordRun(rep.Duration, rep.Elements, err)

	if err != nil {
		lg.Error(err, "bench failed")

		return nil, err
	}

	lg.InfoWith("bench completed", log.Elapsed(rep.Duration))

	return rep, nil
}

// runList drives one list through every phase.
func runList(ctx context.Context, size int) (map[Phase]time.Duration, error) {
	lg := log.Ctx(ctx)
	timings := make(map[Phase]time.Duration, len(Phases))

	l := list.New[int]()

	steps := []struct {
		phase Phase
		fn    func() error
	}{
		{PhasePush, func() error { return push(l, size) }},
		{PhasePeek, func() error { return peek(l, size) }},
		{PhaseIter, func() error { return iterate(l, size) }},
		{PhaseIterMut, func() error { return increment(l, size) }},
		{PhaseDrain, func() error { return drain(l, size) }},
		{PhaseDrop, func() error { return drop(l, size) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, string(step.phase))
		}

		startedAt := time.Now()

		err := step.fn()
		if err != nil {
			l.Drop()

			return nil, errors.Wrap(err, string(step.phase))
		}

		timings[step.phase] = time.Since(startedAt)
		lg.With(log.Str("phase", string(step.phase)), log.Elapsed(timings[step.phase])).Trace("")
	}

	return timings, nil
}

func push(l *list.List[int], size int) error {
	for i := range size {
		l.Push(i)
	}

	metrics.AddPushed(size)

	return nil
}

func peek(l *list.List[int], size int) error {
	val, ok := l.Peek()
	if !ok {
		return errors.Wrap(ErrViolation, "peek on non-empty list returned nothing")
	}

	if val != size-1 {
		return errors.Wrapf(ErrViolation, "peek returned %d, want %d", val, size-1)
	}

	p := l.PeekMut()
	if p == nil || *p != val {
		return errors.Wrap(ErrViolation, "peek_mut disagrees with peek")
	}

	return nil
}

func iterate(l *list.List[int], size int) error {
	want := size - 1

	for val := range l.All() {
		if val != want {
			return errors.Wrapf(ErrViolation, "element %d is %d, want %d", size-1-want, val, want)
		}

		want--
	}

	metrics.AddIterated("shared", size)

	if want != -1 {
		return errors.Wrapf(ErrViolation, "visited %d of %d elements", size-1-want, size)
	}

	if val, _ := l.Peek(); val != size-1 {
		return errors.Wrap(ErrViolation, "borrowing pass changed the front")
	}

	return nil
}

func increment(l *list.List[int], size int) error {
	count := 0

	for p := range l.Mutable() {
		*p++
		count++
	}

	metrics.AddIterated("mutable", count)

	if count != size {
		return errors.Wrapf(ErrViolation, "mutable pass visited %d of %d elements", count, size)
	}

	return nil
}

func drain(l *list.List[int], size int) error {
	it := l.IntoIter()
	if !l.IsEmpty() {
		return errors.Wrap(ErrViolation, "list not empty after move into iterator")
	}

	want := size
	count := 0

	for val := range it.All() {
		if val != want {
			return errors.Wrapf(ErrViolation, "drained %d, want %d", val, want)
		}

		want--
		count++
	}

	metrics.AddPopped(count)

	if count != size {
		return errors.Wrapf(ErrViolation, "drained %d of %d elements", count, size)
	}

	return nil
}

func drop(l *list.List[int], size int) error {
	for i := range size {
		l.Push(i)
	}

	metrics.AddPushed(size)

	l.Drop()
	metrics.AddDroppedNodes(size)

	if !l.IsEmpty() {
		return errors.Wrap(ErrViolation, "list not empty after drop")
	}

	return nil
}
