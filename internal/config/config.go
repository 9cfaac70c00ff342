// Package config provides configuration management for assetry using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The heart of the configuration is the asset map: for every asset category
// (fonts, svg, images, styles, scripts, html) a source glob relative to the
// source root, a destination directory relative to the build root and a watch
// glob. Everything else tunes the libraries each task delegates to.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Category names a logical group of assets handled by one task.
type Category string

const (
	CategoryFonts   Category = "fonts"
	CategorySVG     Category = "svg"
	CategoryImages  Category = "images"
	CategoryStyles  Category = "styles"
	CategoryScripts Category = "scripts"
	CategoryHTML    Category = "html"
)

// Categories lists every category in pipeline order.
var Categories = []Category{
	CategoryFonts,
	CategorySVG,
	CategoryImages,
	CategoryStyles,
	CategoryScripts,
	CategoryHTML,
}

type Config struct {
	Root       string               `mapstructure:"root" yaml:"root"`
	Src        string               `mapstructure:"src" yaml:"src"`
	Build      string               `mapstructure:"build" yaml:"build"`
	Production bool                 `mapstructure:"production" yaml:"production"`
	Paths      map[string]AssetPath `mapstructure:"paths" yaml:"paths"`
	Server     ServerConfig         `mapstructure:"server" yaml:"server"`
	Styles     StylesConfig         `mapstructure:"styles" yaml:"styles"`
	Scripts    ScriptsConfig        `mapstructure:"scripts" yaml:"scripts"`
	Images     ImagesConfig         `mapstructure:"images" yaml:"images"`
	Sprite     SpriteConfig         `mapstructure:"sprite" yaml:"sprite"`
	HTML       HTMLConfig           `mapstructure:"html" yaml:"html"`
	Watch      WatchConfig          `mapstructure:"watch" yaml:"watch"`
	Notify     NotifyConfig         `mapstructure:"notify" yaml:"notify"`
	Clean      CleanConfig          `mapstructure:"clean" yaml:"clean"`
	Log        LogConfig            `mapstructure:"log" yaml:"log"`
}

// AssetPath binds a category to its source glob, destination directory and
// watch glob.
type AssetPath struct {
	Src   string `mapstructure:"src" yaml:"src"`
	Dest  string `mapstructure:"dest" yaml:"dest"`
	Watch string `mapstructure:"watch" yaml:"watch"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	Open           bool     `mapstructure:"open" yaml:"open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type StylesConfig struct {
	// Browsers are esbuild engine targets such as "chrome109" or "safari15".
	Browsers     []string `mapstructure:"browsers" yaml:"browsers"`
	SassBinary   string   `mapstructure:"sass_binary" yaml:"sass_binary"`
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths"`
}

type ScriptsConfig struct {
	Filename  string   `mapstructure:"filename" yaml:"filename"`
	Sourcemap bool     `mapstructure:"sourcemap" yaml:"sourcemap"`
	Browsers  []string `mapstructure:"browsers" yaml:"browsers"`
}

type ImagesConfig struct {
	Quality  int  `mapstructure:"quality" yaml:"quality"`
	Lossless bool `mapstructure:"lossless" yaml:"lossless"`
	Workers  int  `mapstructure:"workers" yaml:"workers"`
}

type SpriteConfig struct {
	Filename string `mapstructure:"filename" yaml:"filename"`
}

type HTMLConfig struct {
	Prefix   string   `mapstructure:"prefix" yaml:"prefix"`
	Basepath string   `mapstructure:"basepath" yaml:"basepath"`
	Locales  []string `mapstructure:"locales" yaml:"locales"`
	Typograf bool     `mapstructure:"typograf" yaml:"typograf"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type NotifyConfig struct {
	Desktop bool `mapstructure:"desktop" yaml:"desktop"`
}

type CleanConfig struct {
	Force bool `mapstructure:"force" yaml:"force"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultPaths returns the asset map the pipeline ships with.
func DefaultPaths() map[string]AssetPath {
	return map[string]AssetPath{
		string(CategoryFonts): {
			Src:   "fonts/*.{woff,woff2,ttf}",
			Dest:  "assets/fonts",
			Watch: "fonts/*.{woff,woff2,ttf}",
		},
		string(CategorySVG): {
			Src:   "svg/*.svg",
			Dest:  "assets/img",
			Watch: "svg/*.svg",
		},
		string(CategoryImages): {
			Src:   "img/**/*.{jpg,png,jpeg,svg,webp,avif,gif}",
			Dest:  "assets/img",
			Watch: "img/**/*.{jpg,png,jpeg,svg,webp,avif,gif}",
		},
		string(CategoryStyles): {
			Src:   "scss/*.scss",
			Dest:  "assets/css",
			Watch: "scss/**/*.scss",
		},
		string(CategoryScripts): {
			Src:   "js/main.js",
			Dest:  "assets/js",
			Watch: "js/**/*.js",
		},
		string(CategoryHTML): {
			Src:   "*.html",
			Dest:  "",
			Watch: "**/*.html",
		},
	}
}

// DefaultBrowsers approximates "last 3 versions" of the major engines.
func DefaultBrowsers() []string {
	return []string{"chrome109", "edge109", "firefox115", "safari15", "ios15", "opera95"}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Root:  ".",
		Src:   "./src",
		Build: "./dest",
		Paths: DefaultPaths(),
		Server: ServerConfig{
			Host: "localhost",
			Port: 3000,
			Open: true,
		},
		Styles: StylesConfig{
			Browsers:   DefaultBrowsers(),
			SassBinary: "sass",
		},
		Scripts: ScriptsConfig{
			Filename: "main.js",
		},
		Images: ImagesConfig{
			Quality: 75,
			Workers: runtime.NumCPU(),
		},
		Sprite: SpriteConfig{
			Filename: "sprite.svg",
		},
		HTML: HTMLConfig{
			Prefix:   "@",
			Basepath: "@file",
			Locales:  []string{"ru", "en-US"},
			Typograf: true,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Notify: NotifyConfig{
			Desktop: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applies defaults for everything v
// does not set and validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}

	applyDefaults(config, v)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyDefaults(config *Config, v *viper.Viper) {
	if config.Root == "" {
		config.Root = "."
	}
	if config.Src == "" {
		config.Src = "./src"
	}
	if config.Build == "" {
		config.Build = "./dest"
	}

	// Partially configured categories inherit the missing fields.
	defaults := DefaultPaths()
	if config.Paths == nil {
		config.Paths = make(map[string]AssetPath, len(defaults))
	}
	for name, def := range defaults {
		p, ok := config.Paths[name]
		if !ok {
			config.Paths[name] = def
			continue
		}
		if p.Watch == "" {
			p.Watch = p.Src
		}
		if p.Src == "" {
			p.Src = def.Src
		}
		if p.Watch == "" {
			p.Watch = def.Watch
		}
		if !v.IsSet("paths."+name+".dest") && p.Dest == "" {
			p.Dest = def.Dest
		}
		config.Paths[name] = p
	}

	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if !v.IsSet("server.port") {
		config.Server.Port = 3000
	}
	if !v.IsSet("server.open") {
		config.Server.Open = true
	}
	if !v.IsSet("notify.desktop") {
		config.Notify.Desktop = true
	}
	if !v.IsSet("html.typograf") {
		config.HTML.Typograf = true
	}
	if len(config.Styles.Browsers) == 0 {
		config.Styles.Browsers = DefaultBrowsers()
	}
	if config.Styles.SassBinary == "" {
		config.Styles.SassBinary = "sass"
	}
	if config.Scripts.Filename == "" {
		config.Scripts.Filename = "main.js"
	}
	if len(config.Scripts.Browsers) == 0 {
		config.Scripts.Browsers = config.Styles.Browsers
	}
	if !v.IsSet("images.quality") {
		config.Images.Quality = 75
	}
	if config.Images.Workers <= 0 {
		config.Images.Workers = runtime.NumCPU()
	}
	if config.Sprite.Filename == "" {
		config.Sprite.Filename = "sprite.svg"
	}
	if config.HTML.Prefix == "" {
		config.HTML.Prefix = "@"
	}
	if config.HTML.Basepath == "" {
		config.HTML.Basepath = "@file"
	}
	if len(config.HTML.Locales) == 0 {
		config.HTML.Locales = []string{"ru", "en-US"}
	}
	if config.Watch.Debounce <= 0 {
		config.Watch.Debounce = 200 * time.Millisecond
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// Asset returns the path settings of a category.
func (c *Config) Asset(cat Category) AssetPath {
	return c.Paths[string(cat)]
}

// SrcDir returns the source root joined onto the project root.
func (c *Config) SrcDir() string {
	return joinRoot(c.Root, c.Src)
}

// BuildDir returns the build root joined onto the project root.
func (c *Config) BuildDir() string {
	return joinRoot(c.Root, c.Build)
}

// DestDir returns the output directory of a category.
func (c *Config) DestDir(cat Category) string {
	return filepath.Join(c.BuildDir(), filepath.FromSlash(c.Asset(cat).Dest))
}

// Mode names the build mode for logs and bundler options.
func (c *Config) Mode() string {
	if c.Production {
		return "production"
	}
	return "development"
}

func joinRoot(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validatePath(config.Src); err != nil {
		return fmt.Errorf("invalid source root '%s': %w", config.Src, err)
	}
	if err := validatePath(config.Build); err != nil {
		return fmt.Errorf("invalid build root '%s': %w", config.Build, err)
	}
	if filepath.Clean(config.SrcDir()) == filepath.Clean(config.BuildDir()) {
		return fmt.Errorf("source and build roots must differ: %s", config.Src)
	}

	for _, cat := range Categories {
		p, ok := config.Paths[string(cat)]
		if !ok {
			return fmt.Errorf("paths: missing category %s", cat)
		}
		if p.Src == "" || p.Watch == "" {
			return fmt.Errorf("paths.%s: source and watch globs are required", cat)
		}
		if p.Dest != "" {
			if err := validatePath(p.Dest); err != nil {
				return fmt.Errorf("paths.%s.dest: %w", cat, err)
			}
			if filepath.IsAbs(p.Dest) {
				return fmt.Errorf("paths.%s.dest should be relative to the build root: %s", cat, p.Dest)
			}
		}
	}

	if err := validateBrowsers(config.Styles.Browsers); err != nil {
		return fmt.Errorf("styles config: %w", err)
	}
	if err := validateBrowsers(config.Scripts.Browsers); err != nil {
		return fmt.Errorf("scripts config: %w", err)
	}

	if config.Images.Quality < 0 || config.Images.Quality > 100 {
		return fmt.Errorf("images config: quality %d is not in range 0-100", config.Images.Quality)
	}

	if strings.ContainsAny(config.Sprite.Filename, `/\`) {
		return fmt.Errorf("sprite config: filename must not contain a directory: %s", config.Sprite.Filename)
	}
	if strings.ContainsAny(config.Scripts.Filename, `/\`) {
		return fmt.Errorf("scripts config: filename must not contain a directory: %s", config.Scripts.Filename)
	}

	if config.HTML.Basepath != "@file" && config.HTML.Basepath != "@root" {
		if err := validatePath(config.HTML.Basepath); err != nil {
			return fmt.Errorf("html config: basepath: %w", err)
		}
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log config: unsupported format %q", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 lets the OS pick, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.ToSlash(filepath.Clean(path))
	for _, segment := range strings.Split(cleanPath, "/") {
		if segment == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

var browserPattern = regexp.MustCompile(`^[a-z]+[0-9]+(\.[0-9]+){0,2}$`)

func validateBrowsers(browsers []string) error {
	for _, b := range browsers {
		if !browserPattern.MatchString(b) {
			return fmt.Errorf("invalid browser target %q (expected e.g. chrome109)", b)
		}
	}
	return nil
}
