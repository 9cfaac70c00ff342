package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/assetry/internal/config"
	"github.com/conneroisu/assetry/internal/glob"
	"github.com/conneroisu/assetry/internal/imaging"
)

// ImagesTask converts JPEG and PNG images to WebP and copies every other
// image format as is.
func ImagesTask() Task {
	return NewTask(TaskImages, "Convert raster images to WebP", runImages)
}

func runImages(ctx context.Context, env *Env) error {
	cfg := env.Config
	matches, err := glob.Expand(cfg.SrcDir(), cfg.Asset(config.CategoryImages).Src)
	if err != nil {
		return err
	}

	opts := imaging.Options{Quality: cfg.Images.Quality, Lossless: cfg.Images.Lossless}
	dest := cfg.DestDir(config.CategoryImages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Images.Workers, 1))

	// hero.png and hero.webp both land on hero.webp; the first source in
	// glob order keeps the target.
	owners := make(map[string]string, len(matches))
	for _, m := range matches {
		target := filepath.Join(dest, filepath.FromSlash(imaging.DestName(m.Rel)))
		if owner, taken := owners[target]; taken {
			env.Logger.Warn(ctx, nil, "Skipping image with a clashing output",
				"source", m.Rel, "kept", owner, "target", target)
			continue
		}
		owners[target] = m.Rel

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !imaging.Convertible(m.Rel) {
				return env.CopyFile(m.Path, target)
			}
			data, err := convertCached(env.Cache, m.Path, opts)
			if err != nil {
				return err
			}
			return env.WriteFile(target, data)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	env.Logger.Debug(ctx, "Processed images", "count", len(matches))
	return nil
}

// convertCached encodes src to WebP unless an identical input was already
// converted with the same options.
func convertCached(cache *BuildCache, src string, opts imaging.Options) ([]byte, error) {
	if cache == nil {
		return imaging.ConvertFile(src, opts)
	}
	input, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	key := ContentKey(input, strconv.Itoa(opts.Quality), strconv.FormatBool(opts.Lossless))
	if data, ok := cache.Get(key); ok {
		return data, nil
	}
	var out bytes.Buffer
	if err := imaging.Encode(&out, bytes.NewReader(input), opts); err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	cache.Set(key, out.Bytes())
	return out.Bytes(), nil
}
