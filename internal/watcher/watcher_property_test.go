//go:build property

package watcher

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebouncerProperties checks the batches handed to change handlers.
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("batches hold one sorted event per path, last wins", prop.ForAll(
		func(indexes []int) bool {
			if len(indexes) == 0 {
				return true
			}

			d := newDebouncer(5 * time.Millisecond)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go d.start(ctx)

			last := map[string]EventType{}
			for i, idx := range indexes {
				path := fmt.Sprintf("src/scss/file%d.scss", idx)
				typ := EventType(i % 4)
				last[path] = typ
				d.events <- ChangeEvent{Path: path, Type: typ}
			}

			var batch []ChangeEvent
			select {
			case batch = <-d.output:
			case <-time.After(time.Second):
				return false
			}

			if len(batch) != len(last) {
				return false
			}
			if !sort.SliceIsSorted(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path }) {
				return false
			}
			for _, e := range batch {
				if last[e.Path] != e.Type {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}

// TestRulesProperties checks that path matching is stable under joins.
func TestRulesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	root := t.TempDir()

	r := &Rules{}
	if err := r.Add("styles", root, "scss/**/*.scss"); err != nil {
		t.Fatal(err)
	}

	properties.Property("any scss file below scss/ triggers styles", prop.ForAll(
		func(dirs []string, name string) bool {
			if name == "" {
				return true
			}
			path := root + "/scss"
			for _, d := range dirs {
				if d == "" {
					continue
				}
				path += "/" + d
			}
			names := r.Match(path + "/" + name + ".scss")
			return len(names) == 1 && names[0] == "styles"
		},
		gen.SliceOfN(3, gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
