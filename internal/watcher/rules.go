package watcher

import (
	"path/filepath"
	"strings"

	"github.com/conneroisu/assetry/internal/glob"
)

// Rule binds a watch glob, relative to Root, to a name (the task to run).
type Rule struct {
	Name    string
	Root    string
	Pattern *glob.Pattern
}

// Rules maps changed paths to rule names.
type Rules struct {
	rules []Rule
}

// Add registers a rule.
func (r *Rules) Add(name, root, pattern string) error {
	p, err := glob.Compile(pattern)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, Rule{Name: name, Root: abs, Pattern: p})
	return nil
}

// Rules returns the registered rules.
func (r *Rules) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Match returns the names of every rule matching path, in registration
// order.
func (r *Rules) Match(path string) []string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}

	var names []string
	for _, rule := range r.rules {
		rel, err := filepath.Rel(rule.Root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rule.Pattern.Match(filepath.ToSlash(rel)) {
			names = append(names, rule.Name)
		}
	}
	return names
}

// Filter is a FileFilter accepting paths that match at least one rule.
func (r *Rules) Filter(path string) bool {
	return len(r.Match(path)) > 0
}

// Names returns the distinct rule names matched by a batch of events, in
// registration order.
func (r *Rules) Names(events []ChangeEvent) []string {
	hit := make(map[string]bool)
	for _, e := range events {
		for _, name := range r.Match(e.Path) {
			hit[name] = true
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, rule := range r.rules {
		if hit[rule.Name] && !seen[rule.Name] {
			names = append(names, rule.Name)
			seen[rule.Name] = true
		}
	}
	return names
}
