package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/conneroisu/assetry/internal/config"
	"github.com/conneroisu/assetry/internal/glob"
	"github.com/conneroisu/assetry/internal/svgsprite"
)

// SpriteTask merges the icons into one stack sprite.
func SpriteTask() Task {
	return NewTask(TaskSprite, "Build the SVG stack sprite", runSprite)
}

func runSprite(ctx context.Context, env *Env) error {
	matches, err := glob.Expand(env.Config.SrcDir(), env.Config.Asset(config.CategorySVG).Src)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		env.Logger.Debug(ctx, "No icons found, skipping sprite")
		return nil
	}

	sprite := svgsprite.New()
	for _, m := range matches {
		data, err := os.ReadFile(m.Path)
		if err != nil {
			return err
		}
		if err := sprite.AddFile(m.Path, data); err != nil {
			return err
		}
	}

	out, err := sprite.Bytes()
	if err != nil {
		return err
	}

	dest := filepath.Join(env.Config.DestDir(config.CategorySVG), env.Config.Sprite.Filename)
	env.Logger.Debug(ctx, "Writing sprite", "icons", sprite.Len(), "path", dest)
	return env.WriteFile(dest, out)
}
