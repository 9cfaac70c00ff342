package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, "./src", cfg.Src)
	assert.Equal(t, "./dest", cfg.Build)
	assert.False(t, cfg.Production)
	assert.Equal(t, "development", cfg.Mode())

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Server.Open)
	assert.True(t, cfg.Notify.Desktop)
	assert.True(t, cfg.HTML.Typograf)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"ru", "en-US"}, cfg.HTML.Locales)
	assert.Equal(t, "@", cfg.HTML.Prefix)
	assert.Equal(t, DefaultBrowsers(), cfg.Styles.Browsers)
	assert.Equal(t, cfg.Styles.Browsers, cfg.Scripts.Browsers)
	assert.Equal(t, "sprite.svg", cfg.Sprite.Filename)
	assert.Equal(t, 75, cfg.Images.Quality)
	assert.Positive(t, cfg.Images.Workers)

	assert.Equal(t, DefaultPaths(), cfg.Paths)
}

func TestDefaultAssetMap(t *testing.T) {
	cfg := Default()

	tests := []struct {
		category Category
		src      string
		dest     string
		watch    string
	}{
		{CategoryFonts, "fonts/*.{woff,woff2,ttf}", "assets/fonts", "fonts/*.{woff,woff2,ttf}"},
		{CategorySVG, "svg/*.svg", "assets/img", "svg/*.svg"},
		{CategoryImages, "img/**/*.{jpg,png,jpeg,svg,webp,avif,gif}", "assets/img", "img/**/*.{jpg,png,jpeg,svg,webp,avif,gif}"},
		{CategoryStyles, "scss/*.scss", "assets/css", "scss/**/*.scss"},
		{CategoryScripts, "js/main.js", "assets/js", "js/**/*.js"},
		{CategoryHTML, "*.html", "", "**/*.html"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			p := cfg.Asset(tt.category)
			assert.Equal(t, tt.src, p.Src)
			assert.Equal(t, tt.dest, p.Dest)
			assert.Equal(t, tt.watch, p.Watch)
		})
	}

	assert.Len(t, Categories, len(cfg.Paths))
}

func TestDirectories(t *testing.T) {
	cfg := Default()
	cfg.Root = "/project"

	assert.Equal(t, filepath.FromSlash("/project/src"), cfg.SrcDir())
	assert.Equal(t, filepath.FromSlash("/project/dest"), cfg.BuildDir())
	assert.Equal(t, filepath.FromSlash("/project/dest/assets/css"), cfg.DestDir(CategoryStyles))
	assert.Equal(t, filepath.FromSlash("/project/dest"), cfg.DestDir(CategoryHTML))

	cfg.Build = "/tmp/out"
	assert.Equal(t, filepath.FromSlash("/tmp/out"), cfg.BuildDir())
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("production", true)
	v.Set("server.port", 0)
	v.Set("server.open", false)
	v.Set("styles.browsers", []string{"chrome120"})
	v.Set("paths.styles.dest", "css")
	v.Set("paths.scripts.src", "js/app.js")
	v.Set("watch.debounce", "50ms")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.True(t, cfg.Production)
	assert.Equal(t, "production", cfg.Mode())
	assert.Equal(t, 0, cfg.Server.Port)
	assert.False(t, cfg.Server.Open)
	assert.Equal(t, []string{"chrome120"}, cfg.Styles.Browsers)
	assert.Equal(t, []string{"chrome120"}, cfg.Scripts.Browsers)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)

	styles := cfg.Asset(CategoryStyles)
	assert.Equal(t, "css", styles.Dest)
	assert.Equal(t, "scss/*.scss", styles.Src)
	assert.Equal(t, "scss/**/*.scss", styles.Watch)

	scripts := cfg.Asset(CategoryScripts)
	assert.Equal(t, "js/app.js", scripts.Src)
	assert.Equal(t, "js/app.js", scripts.Watch)
	assert.Equal(t, "assets/js", scripts.Dest)
}

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
src: ./source
build: ./public
html:
  locales: [en-US]
  typograf: false
images:
  quality: 90
`)))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "./source", cfg.Src)
	assert.Equal(t, "./public", cfg.Build)
	assert.Equal(t, []string{"en-US"}, cfg.HTML.Locales)
	assert.False(t, cfg.HTML.Typograf)
	assert.Equal(t, 90, cfg.Images.Quality)
}

func TestExplicitZeroQualityIsKept(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString("images:\n  quality: 0\n")))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Images.Quality)

	cfg, err = LoadFrom(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Images.Quality)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *viper.Viper)
	}{
		{"port out of range", func(v *viper.Viper) { v.Set("server.port", 70000) }},
		{"dangerous host", func(v *viper.Viper) { v.Set("server.host", "localhost;rm") }},
		{"traversal in build root", func(v *viper.Viper) { v.Set("build", "../outside") }},
		{"traversal in dest", func(v *viper.Viper) { v.Set("paths.fonts.dest", "assets/../../x") }},
		{"same roots", func(v *viper.Viper) { v.Set("src", "./site"); v.Set("build", "site") }},
		{"bad browser", func(v *viper.Viper) { v.Set("styles.browsers", []string{"last 3 versions"}) }},
		{"quality", func(v *viper.Viper) { v.Set("images.quality", 101) }},
		{"sprite dir", func(v *viper.Viper) { v.Set("sprite.filename", "icons/sprite.svg") }},
		{"log format", func(v *viper.Viper) { v.Set("log.format", "xml") }},
		{"invalid type", func(v *viper.Viper) { v.Set("server.port", "invalid_port") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)
			_, err := LoadFrom(v)
			assert.Error(t, err)
		})
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("./src"))
	assert.NoError(t, validatePath("assets/img"))
	assert.NoError(t, validatePath("/abs/path"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("a/../../b"))
	assert.Error(t, validatePath("dest;rm -rf"))
	// ".." inside a file name is not a traversal
	assert.NoError(t, validatePath("assets/v1..2"))
}
