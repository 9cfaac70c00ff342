// Package cmd provides the command-line interface for assetry.
//
// Configuration System:
//
//	Settings are resolved with the following precedence:
//	1. Command-line flags (--port, --log-level, ...) - highest priority
//	2. Individual environment variables (ASSETRY_SERVER_PORT, ...)
//	3. Configuration file: --config, else ASSETRY_CONFIG_FILE, else .assetry.yml
//	4. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	ASSETRY_CONFIG_FILE: Path to custom configuration file
//	ASSETRY_PRODUCTION: Build in production mode
//	ASSETRY_SERVER_PORT: Override server port
//	And every other key following the ASSETRY_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetry",
	Short: "Front-end asset pipeline with a live-reload development server",
	Long: `assetry builds a static front-end from a source tree: it copies fonts,
packs SVG icons into a sprite, converts images to WebP, compiles Sass, bundles
JavaScript and expands HTML includes with typographic clean-up.

Run without a command it starts a development build, serves the output with
live reload and rebuilds whatever changes.

Quick Start:
  assetry                 Development build, server and watcher
  assetry build           Production build, server and watcher
  assetry build --once    Production build only
  assetry run styles      Run single tasks
  assetry tasks           List the tasks

Documentation: https://github.com/conneroisu/assetry`,
	SilenceUsage: true,
	RunE:         runDev,
}

// Execute adds all child commands to the root command and runs it until the
// process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .assetry.yml, can also use ASSETRY_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	addServerFlags(rootCmd.PersistentFlags())
}

// initConfig initializes the configuration system.
//
// Configuration file lookup (highest to lowest):
//  1. --config flag
//  2. ASSETRY_CONFIG_FILE environment variable
//  3. .assetry.yml in the current directory
//
// Every key can also be set from the environment with the ASSETRY_ prefix,
// dots becoming underscores (ASSETRY_IMAGES_QUALITY=80).
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("ASSETRY_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetry")
	}

	viper.SetEnvPrefix("ASSETRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv()

	bindFlags(rootCmd.PersistentFlags())

	// A missing file is fine; defaults apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindEnv registers the keys AutomaticEnv cannot discover on its own because
// no file or flag mentions them.
func bindEnv() {
	for _, key := range []string{
		"root", "src", "build", "production",
		"server.host", "server.port", "server.open",
		"styles.sass_binary",
		"scripts.filename", "scripts.sourcemap",
		"images.quality", "images.lossless", "images.workers",
		"sprite.filename",
		"html.prefix", "html.basepath", "html.typograf",
		"watch.debounce",
		"notify.desktop",
		"clean.force",
		"log.level", "log.format",
	} {
		_ = viper.BindEnv(key)
	}
}
