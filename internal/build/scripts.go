package build

import (
	"context"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/assetry/internal/config"
	"github.com/conneroisu/assetry/internal/glob"
)

// ScriptsTask bundles the script entry point into one browser file. Bundling
// failures are reported and do not fail the task.
func ScriptsTask() Task {
	return NewTask(TaskScripts, "Bundle scripts", runScripts)
}

func runScripts(ctx context.Context, env *Env) error {
	cfg := env.Config
	matches, err := glob.Expand(cfg.SrcDir(), cfg.Asset(config.CategoryScripts).Src)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		env.Logger.Debug(ctx, "No script entry point found")
		return nil
	}

	engines, err := Engines(cfg.Scripts.Browsers)
	if err != nil {
		return err
	}

	entries := make([]string, len(matches))
	for i, m := range matches {
		entries[i] = m.Path
	}

	opts := BundleOptions{
		Entries:    entries,
		Engines:    engines,
		Production: cfg.Production,
		Sourcemap:  cfg.Scripts.Sourcemap,
	}
	// esbuild names outputs after their entries when there are several.
	if len(entries) == 1 {
		opts.Outfile = filepath.Join(cfg.DestDir(config.CategoryScripts), cfg.Scripts.Filename)
	} else {
		opts.Outdir = cfg.DestDir(config.CategoryScripts)
	}

	files, err := Bundle(opts)
	if err != nil {
		env.Report(ctx, "JS", err)
		return nil
	}

	for _, f := range files {
		if err := env.WriteFile(f.Path, f.Contents); err != nil {
			return err
		}
	}
	return nil
}

// BundleOptions configures Bundle. Exactly one of Outfile and Outdir is set.
type BundleOptions struct {
	Entries    []string
	Outfile    string
	Outdir     string
	Engines    []api.Engine
	Production bool
	Sourcemap  bool
}

// Bundle runs esbuild over the entry points and returns the output files
// without writing them. Development builds are readable; production builds
// are minified.
func Bundle(opts BundleOptions) ([]api.OutputFile, error) {
	production := opts.Production
	mode := "development"
	if production {
		mode = "production"
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       opts.Entries,
		Outfile:           opts.Outfile,
		Outdir:            opts.Outdir,
		Bundle:            true,
		Write:             false,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Engines:           opts.Engines,
		MinifyWhitespace:  production,
		MinifyIdentifiers: production,
		MinifySyntax:      production,
		TreeShaking:       cond(production, api.TreeShakingTrue, api.TreeShakingDefault),
		Sourcemap:         cond(opts.Sourcemap, api.SourceMapLinked, api.SourceMapNone),
		Define:            map[string]string{"process.env.NODE_ENV": `"` + mode + `"`},
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, buildErrorsFromMessages(TaskScripts, result.Errors)
	}
	return result.OutputFiles, nil
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
