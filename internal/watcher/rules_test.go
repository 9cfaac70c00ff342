package watcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules(t *testing.T, src string) *Rules {
	t.Helper()
	r := &Rules{}
	require.NoError(t, r.Add("fonts", src, "fonts/*.{woff,woff2,ttf}"))
	require.NoError(t, r.Add("svgToSprite", src, "svg/*.svg"))
	require.NoError(t, r.Add("images", src, "img/**/*.{jpg,png,jpeg,svg,webp,avif,gif}"))
	require.NoError(t, r.Add("styles", src, "scss/**/*.scss"))
	require.NoError(t, r.Add("scripts", src, "js/**/*.js"))
	require.NoError(t, r.Add("htmlInclude", src, "**/*.html"))
	return r
}

func TestRulesMatch(t *testing.T) {
	src := t.TempDir()
	r := testRules(t, src)

	tests := []struct {
		rel  string
		want []string
	}{
		{"fonts/Inter.woff2", []string{"fonts"}},
		{"svg/arrow.svg", []string{"svgToSprite"}},
		{"img/icons/logo.svg", []string{"images"}},
		{"img/photo.jpg", []string{"images"}},
		{"scss/blocks/_header.scss", []string{"styles"}},
		{"scss/main.scss", []string{"styles"}},
		{"js/modules/menu.js", []string{"scripts"}},
		{"index.html", []string{"htmlInclude"}},
		{"html/partials/footer.html", []string{"htmlInclude"}},
		{"README.md", nil},
		{"fonts/sub/Inter.woff2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Match(filepath.Join(src, filepath.FromSlash(tt.rel))))
		})
	}
}

func TestRulesIgnoreOutsideRoot(t *testing.T) {
	src := t.TempDir()
	r := testRules(t, src)

	assert.Nil(t, r.Match(filepath.Join(filepath.Dir(src), "index.html")))
	assert.False(t, r.Filter(filepath.Join(filepath.Dir(src), "scss", "main.scss")))
	assert.True(t, r.Filter(filepath.Join(src, "scss", "main.scss")))
}

func TestRulesNames(t *testing.T) {
	src := t.TempDir()
	r := testRules(t, src)

	events := []ChangeEvent{
		{Path: filepath.Join(src, "index.html")},
		{Path: filepath.Join(src, "scss", "main.scss")},
		{Path: filepath.Join(src, "scss", "_vars.scss")},
		{Path: filepath.Join(src, "notes.txt")},
	}
	assert.Equal(t, []string{"styles", "htmlInclude"}, r.Names(events))
	assert.Len(t, r.Rules(), 6)
}

func TestRulesRejectBadPatterns(t *testing.T) {
	r := &Rules{}
	assert.Error(t, r.Add("x", t.TempDir(), "../outside/*.js"))
	assert.Empty(t, r.Rules())
}
