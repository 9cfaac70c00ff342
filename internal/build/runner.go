package build

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/assetry/internal/config"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/logging"
)

// Task names.
const (
	TaskClean   = "clean"
	TaskFonts   = "fonts"
	TaskSprite  = "svgToSprite"
	TaskImages  = "images"
	TaskStyles  = "styles"
	TaskScripts = "scripts"
	TaskHTML    = "htmlInclude"
)

// Pipeline is the order of a full build.
var Pipeline = []string{TaskClean, TaskFonts, TaskSprite, TaskImages, TaskStyles, TaskScripts, TaskHTML}

var categoryTasks = map[config.Category]string{
	config.CategoryFonts:   TaskFonts,
	config.CategorySVG:     TaskSprite,
	config.CategoryImages:  TaskImages,
	config.CategoryStyles:  TaskStyles,
	config.CategoryScripts: TaskScripts,
	config.CategoryHTML:    TaskHTML,
}

// TaskForCategory returns the task that rebuilds a category.
func TaskForCategory(cat config.Category) string {
	return categoryTasks[cat]
}

// DefaultTasks returns every pipeline task.
func DefaultTasks() []Task {
	return []Task{
		CleanTask(),
		FontsTask(),
		SpriteTask(),
		ImagesTask(),
		StylesTask(),
		ScriptsTask(),
		HTMLTask(),
	}
}

// Runner executes tasks by name. Runs of the same task never overlap; a
// trigger that arrives while its task is running queues exactly one rerun.
type Runner struct {
	env     *Env
	tasks   map[string]Task
	order   []string
	metrics *BuildMetrics
	errors  *asserrors.ErrorCollector

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	states map[string]*triggerState
	wg     sync.WaitGroup
}

type triggerState struct {
	running bool
	pending bool
}

// NewRunner creates a runner over env. With no tasks given it registers
// DefaultTasks.
func NewRunner(env *Env, tasks ...Task) *Runner {
	if len(tasks) == 0 {
		tasks = DefaultTasks()
	}
	if env.Logger == nil {
		env.Logger = logging.Nop()
	}

	r := &Runner{
		env:     env,
		tasks:   make(map[string]Task, len(tasks)),
		metrics: NewBuildMetrics(),
		errors:  asserrors.NewErrorCollector(),
		locks:   make(map[string]*sync.Mutex),
		states:  make(map[string]*triggerState),
	}
	for _, t := range tasks {
		if _, dup := r.tasks[t.Name()]; !dup {
			r.order = append(r.order, t.Name())
		}
		r.tasks[t.Name()] = t
	}
	return r
}

// Tasks returns the registered tasks in registration order.
func (r *Runner) Tasks() []Task {
	out := make([]Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tasks[name])
	}
	return out
}

// Metrics returns the run metrics.
func (r *Runner) Metrics() *BuildMetrics { return r.metrics }

// Errors returns the latest problems of every task.
func (r *Runner) Errors() *asserrors.ErrorCollector { return r.errors }

// Env returns the environment tasks run with.
func (r *Runner) Env() *Env { return r.env }

// Run executes one task and waits for it.
func (r *Runner) Run(ctx context.Context, name string) error {
	task, ok := r.tasks[name]
	if !ok {
		return r.unknown(name)
	}

	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	env := r.env.fork(name)
	op := logging.StartOperation(r.env.Logger, name)
	op.Info(ctx, fmt.Sprintf("Starting '%s'...", name))

	start := time.Now()
	err := task.Run(ctx, env)
	r.metrics.RecordRun(name, time.Since(start), err)

	problems := env.Problems()
	if err != nil {
		problems = append(problems, toBuildErrors(err)...)
	}
	r.errors.Set(name, problems)
	env.Streamer.Report(ctx, name, problems)

	if err != nil {
		op.EndWithError(ctx, err)
		return fmt.Errorf("task '%s': %w", name, err)
	}
	op.End(ctx)

	if written := env.Written(); len(written) > 0 {
		env.Streamer.Stream(ctx, name, written)
	}
	return nil
}

// Series runs tasks one after another and stops at the first error.
func (r *Runner) Series(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, ok := r.tasks[name]; !ok {
			return r.unknown(name)
		}
	}
	for _, name := range names {
		if err := r.Run(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Trigger schedules a run without waiting. Failures are logged; the caller
// keeps going, which is what a watch session wants.
func (r *Runner) Trigger(ctx context.Context, name string) {
	if _, ok := r.tasks[name]; !ok {
		r.env.Logger.Warn(ctx, r.unknown(name), "Ignoring trigger")
		return
	}

	r.mu.Lock()
	state, ok := r.states[name]
	if !ok {
		state = &triggerState{}
		r.states[name] = state
	}
	if state.running {
		state.pending = true
		r.mu.Unlock()
		return
	}
	state.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		for {
			if err := r.Run(ctx, name); err != nil && ctx.Err() == nil {
				r.env.Logger.Error(ctx, err, "Task failed, still watching", "task", name)
			}

			r.mu.Lock()
			if state.pending && ctx.Err() == nil {
				state.pending = false
				r.mu.Unlock()
				continue
			}
			state.running = false
			state.pending = false
			r.mu.Unlock()
			return
		}
	}()
}

// Wait blocks until every triggered run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) lockFor(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

func (r *Runner) unknown(name string) error {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return fmt.Errorf("task '%s' is not defined (available: %s)", name, strings.Join(names, ", "))
}
