package glob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"img/**/*.{jpg,png}", "img"},
		{"fonts/*.{woff,woff2,ttf}", "fonts"},
		{"*.html", ""},
		{"**/*.html", ""},
		{"js/main.js", "js"},
		{"./scss/*.scss", "scss"},
		{"a/b/c/*.svg", "a/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, Base(tt.pattern))
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		match   bool
	}{
		{"img/**/*.{jpg,png,jpeg}", "img/photo.jpg", true},
		{"img/**/*.{jpg,png,jpeg}", "img/nested/deep/photo.png", true},
		{"img/**/*.{jpg,png,jpeg}", "img/photo.gif", false},
		{"img/**/*.{jpg,png,jpeg}", "other/photo.jpg", false},
		{"scss/*.scss", "scss/main.scss", true},
		{"scss/*.scss", "scss/blocks/_header.scss", false},
		{"scss/**/*.scss", "scss/blocks/_header.scss", true},
		{"scss/**/*.scss", "scss/main.scss", true},
		{"*.html", "index.html", true},
		{"*.html", "partials/header.html", false},
		{"**/*.html", "partials/header.html", true},
		{"**/*.html", "index.html", true},
		{"js/main.js", "js/main.js", true},
		{"js/main.js", "js/other.js", false},
		{"fonts/*.{woff,woff2,ttf}", "fonts/Inter.woff2", true},
		{"fonts/*.{woff,woff2,ttf}", "./fonts/Inter.ttf", true},
		{"a/**/b/**/*.x", "a/b/f.x", true},
		{"a/**/b/**/*.x", "a/b/c/f.x", true},
		{"a/**/b/**/*.x", "a/c/b/f.x", true},
		{"a/**/b/**/*.x", "a/c/b/d/e/f.x", true},
		{"a/**/b/**/*.x", "a/c/f.x", false},
		{"**/partials/**/*.html", "partials/nav.html", true},
		{"**/partials/**/*.html", "pages/partials/x/nav.html", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.match, p.Match(tt.path))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, pattern := range []string{"", ".", "/etc/*.conf", "../up/*.js"} {
		t.Run(pattern, func(t *testing.T) {
			_, err := Compile(pattern)
			assert.Error(t, err)
		})
	}
	assert.Panics(t, func() { MustCompile("") })
}

func TestVariants(t *testing.T) {
	forms, err := variants("a/**/b/**/*.x")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/**/b/**/*.x", "a/b/**/*.x", "a/**/b/*.x", "a/b/*.x"}, forms)

	forms, err = variants("img/*.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"img/*.png"}, forms)

	_, err = Compile("a/**/b/**/c/**/d/**/e/**/*.x")
	assert.Error(t, err)
}

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(f), 0o644))
	}
}

func TestExpand(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"img/a.png",
		"img/icons/b.jpg",
		"img/icons/c.txt",
		"img/z.svg",
		"index.html",
		"about.html",
		"partials/header.html",
		"js/main.js",
	)

	matches, err := Expand(root, "img/**/*.{jpg,png,svg}")
	require.NoError(t, err)
	rels := make([]string, len(matches))
	for i, m := range matches {
		rels[i] = m.Rel
		assert.True(t, strings.HasPrefix(m.Path, root))
	}
	assert.Equal(t, []string{"a.png", "icons/b.jpg", "z.svg"}, rels)

	matches, err = Expand(root, "*.html")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "about.html", matches[0].Rel)
	assert.Equal(t, "index.html", matches[1].Rel)

	matches, err = Expand(root, "js/main.js")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "main.js", matches[0].Rel)
	assert.Equal(t, filepath.Join(root, "js", "main.js"), matches[0].Path)
}

func TestExpandMissing(t *testing.T) {
	root := t.TempDir()

	matches, err := Expand(root, "fonts/*.woff")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = Expand(root, "js/main.js")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPatternAccessors(t *testing.T) {
	p := MustCompile("./img/**/*.png")
	assert.Equal(t, "img/**/*.png", p.String())
	assert.Equal(t, "img", p.Base())
	assert.True(t, HasMagic("*.js"))
	assert.False(t, HasMagic("js/main.js"))
}
