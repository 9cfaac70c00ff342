package build

import (
	"context"
	"path/filepath"

	"github.com/conneroisu/assetry/internal/config"
	"github.com/conneroisu/assetry/internal/glob"
)

// FontsTask copies web fonts unchanged.
func FontsTask() Task {
	return NewTask(TaskFonts, "Copy web fonts", runFonts)
}

func runFonts(ctx context.Context, env *Env) error {
	return copyCategory(ctx, env, config.CategoryFonts)
}

// copyCategory copies every source of a category to its destination,
// keeping paths relative to the glob base.
func copyCategory(ctx context.Context, env *Env, cat config.Category) error {
	matches, err := glob.Expand(env.Config.SrcDir(), env.Config.Asset(cat).Src)
	if err != nil {
		return err
	}

	dest := env.Config.DestDir(cat)
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := env.CopyFile(m.Path, filepath.Join(dest, filepath.FromSlash(m.Rel))); err != nil {
			return err
		}
	}
	env.Logger.Debug(ctx, "Copied files", "count", len(matches), "dest", dest)
	return nil
}
