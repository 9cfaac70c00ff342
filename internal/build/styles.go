package build

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/assetry/internal/config"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/glob"
	"github.com/conneroisu/assetry/internal/sass"
)

// StylesTask compiles the Sass entry points, prefixes the CSS for the
// configured browsers and minifies it in production. Compilation failures
// are reported and do not fail the task.
func StylesTask() Task {
	return NewTask(TaskStyles, "Compile, prefix and minify stylesheets", runStyles)
}

func runStyles(ctx context.Context, env *Env) error {
	cfg := env.Config
	matches, err := glob.Expand(cfg.SrcDir(), cfg.Asset(config.CategoryStyles).Src)
	if err != nil {
		return err
	}

	engines, err := Engines(cfg.Styles.Browsers)
	if err != nil {
		return err
	}

	dest := cfg.DestDir(config.CategoryStyles)
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Partials are only compiled through the files that import them.
		if strings.HasPrefix(path.Base(m.Rel), "_") {
			continue
		}

		css, err := compileStylesheet(ctx, env, m.Path, engines)
		if err != nil {
			env.Report(ctx, "SCSS", err)
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(strings.TrimSuffix(m.Rel, path.Ext(m.Rel))+".css"))
		if err := env.WriteFile(target, css); err != nil {
			return err
		}
	}
	return nil
}

func compileStylesheet(ctx context.Context, env *Env, file string, engines []api.Engine) ([]byte, error) {
	if env.Sass == nil {
		return nil, fmt.Errorf("no sass compiler configured")
	}

	res, err := env.Sass.Compile(ctx, sass.Request{
		Path:         file,
		IncludePaths: env.Config.Styles.IncludePaths,
	})
	if err != nil {
		return nil, err
	}

	return PostProcessCSS(res.CSS, file, engines, env.Config.Production)
}

// PostProcessCSS adds vendor prefixes for engines and, in production,
// minifies.
func PostProcessCSS(css, file string, engines []api.Engine, production bool) ([]byte, error) {
	result := api.Transform(css, api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       file,
		Engines:          engines,
		MinifyWhitespace: production,
		MinifySyntax:     production,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, buildErrorsFromMessages(TaskStyles, result.Errors)
	}
	return result.Code, nil
}

func buildErrorsFromMessages(task string, msgs []api.Message) asserrors.BuildErrors {
	out := make(asserrors.BuildErrors, 0, len(msgs))
	for _, msg := range msgs {
		be := &asserrors.BuildError{
			Task:     task,
			Message:  msg.Text,
			Severity: asserrors.ErrorSeverityError,
		}
		if msg.Location != nil {
			be.File = msg.Location.File
			be.Line = msg.Location.Line
			be.Column = msg.Location.Column + 1
		}
		out = append(out, be)
	}
	return out
}
