package build

import (
	"context"
	"path/filepath"

	"github.com/conneroisu/assetry/internal/config"
	"github.com/conneroisu/assetry/internal/glob"
	"github.com/conneroisu/assetry/internal/include"
	"github.com/conneroisu/assetry/internal/typograf"
)

// HTMLTask expands includes in the HTML pages and applies typographic
// substitutions.
func HTMLTask() Task {
	return NewTask(TaskHTML, "Expand HTML includes and apply typography", runHTML)
}

func runHTML(ctx context.Context, env *Env) error {
	cfg := env.Config
	matches, err := glob.Expand(cfg.SrcDir(), cfg.Asset(config.CategoryHTML).Src)
	if err != nil {
		return err
	}

	var tp *typograf.Typograf
	if cfg.HTML.Typograf {
		tp, err = typograf.New(cfg.HTML.Locales...)
		if err != nil {
			return err
		}
	}

	proc := include.New(cfg.HTML.Prefix, cfg.HTML.Basepath, cfg.SrcDir())
	dest := cfg.DestDir(config.CategoryHTML)

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := proc.ProcessFile(m.Path)
		if err != nil {
			return err
		}
		if tp != nil {
			if out, err = tp.Process(out); err != nil {
				return err
			}
		}

		if err := env.WriteFile(filepath.Join(dest, filepath.FromSlash(m.Rel)), out); err != nil {
			return err
		}
	}
	return nil
}
