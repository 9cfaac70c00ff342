// Package glob expands the source globs of the asset map. Patterns use the
// familiar syntax of front-end task runners: "*" stays inside one path
// segment, "**" crosses segments (and may match none), "{a,b}" alternates.
// Matching is delegated to gobwas/glob.
package glob

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is a compiled glob relative to some root directory.
type Pattern struct {
	raw      string
	base     string
	literal  bool
	matchers []glob.Glob
}

// Match is one file selected by a pattern.
type Match struct {
	// Path is the absolute (or root-joined) path on disk.
	Path string
	// Rel is the slash-separated path relative to the pattern base, which is
	// what destination paths are built from.
	Rel string
}

// Compile parses a slash-separated pattern.
func Compile(pattern string) (*Pattern, error) {
	pattern = strings.TrimPrefix(path.Clean(filepath.ToSlash(pattern)), "./")
	if pattern == "" || pattern == "." {
		return nil, fmt.Errorf("empty glob pattern")
	}
	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, "../") || pattern == ".." {
		return nil, fmt.Errorf("glob %q must be relative and stay inside its root", pattern)
	}

	p := &Pattern{
		raw:     pattern,
		base:    Base(pattern),
		literal: !HasMagic(pattern),
	}

	forms, err := variants(pattern)
	if err != nil {
		return nil, err
	}
	for _, variant := range forms {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling glob %q: %w", pattern, err)
		}
		p.matchers = append(p.matchers, g)
	}

	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the normalized pattern.
func (p *Pattern) String() string { return p.raw }

// Base returns the static directory prefix of the pattern.
func (p *Pattern) Base() string { return p.base }

// Match reports whether a slash-separated path relative to the pattern root
// matches.
func (p *Pattern) Match(rel string) bool {
	rel = strings.TrimPrefix(path.Clean(filepath.ToSlash(rel)), "./")
	for _, m := range p.matchers {
		if m.Match(rel) {
			return true
		}
	}
	return false
}

// Expand walks root and returns every regular file matching the pattern,
// sorted by path. A missing base directory yields no matches.
func (p *Pattern) Expand(root string) ([]Match, error) {
	if p.literal {
		full := filepath.Join(root, filepath.FromSlash(p.raw))
		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		if info.IsDir() {
			return nil, nil
		}
		return []Match{{Path: full, Rel: path.Base(p.raw)}}, nil
	}

	baseDir := filepath.Join(root, filepath.FromSlash(p.base))
	if _, err := os.Stat(baseDir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var matches []Match
	err := filepath.WalkDir(baseDir, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !p.Match(rel) {
			return nil
		}
		matches = append(matches, Match{Path: full, Rel: relToBase(p.base, rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Rel < matches[j].Rel })
	return matches, nil
}

// Expand compiles pattern and expands it under root.
func Expand(root, pattern string) ([]Match, error) {
	p, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return p.Expand(root)
}

// HasMagic reports whether the pattern contains glob syntax.
func HasMagic(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Base returns the leading path segments of pattern that contain no glob
// syntax. For "img/**/*.png" it is "img"; for "*.html" it is "".
func Base(pattern string) string {
	pattern = strings.TrimPrefix(path.Clean(filepath.ToSlash(pattern)), "./")
	segments := strings.Split(pattern, "/")
	var static []string
	for i, seg := range segments {
		if HasMagic(seg) {
			break
		}
		// The last literal segment of a literal pattern is the file itself.
		if i == len(segments)-1 {
			break
		}
		static = append(static, seg)
	}
	return strings.Join(static, "/")
}

func relToBase(base, rel string) string {
	if base == "" {
		return rel
	}
	return strings.TrimPrefix(rel, base+"/")
}

// maxDoubleStars bounds the "**/" segments of one pattern; each one doubles
// the number of compiled variants.
const maxDoubleStars = 4

// variants returns the pattern in every form where any subset of its "**/"
// segments is dropped, because gobwas/glob never lets "**" match zero
// directories.
func variants(pattern string) ([]string, error) {
	parts := strings.Split(pattern, "**/")
	stars := len(parts) - 1
	if stars > maxDoubleStars {
		return nil, fmt.Errorf("glob %q has more than %d \"**\" segments", pattern, maxDoubleStars)
	}

	out := make([]string, 0, 1<<stars)
	for mask := (1 << stars) - 1; mask >= 0; mask-- {
		var b strings.Builder
		b.WriteString(parts[0])
		for i := 1; i <= stars; i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteString("**/")
			}
			b.WriteString(parts[i])
		}
		out = append(out, b.String())
	}
	return out, nil
}
