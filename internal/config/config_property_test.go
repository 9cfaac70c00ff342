//go:build property
// +build property

package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestConfigurationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ports in range validate", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			return validateConfig(cfg) == nil
		},
		gen.IntRange(0, 65535),
	))

	properties.Property("ports out of range are rejected", prop.ForAll(
		func(port int, negative bool) bool {
			cfg := Default()
			if negative {
				port = -port
			} else {
				port += 65535
			}
			cfg.Server.Port = port
			return validateConfig(cfg) != nil
		},
		gen.IntRange(1, 1<<20),
		gen.Bool(),
	))

	properties.Property("traversal is always rejected", prop.ForAll(
		func(segments []string, depth int) bool {
			parts := []string{}
			for i := 0; i <= depth; i++ {
				parts = append(parts, "..")
			}
			parts = append(parts, segments...)
			return validatePath(filepath.Join(parts...)) != nil
		},
		gen.SliceOfN(3, gen.AlphaString()),
		gen.IntRange(0, 3),
	))

	properties.Property("plain relative paths are accepted", prop.ForAll(
		func(segments []string) bool {
			var parts []string
			for _, s := range segments {
				if s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) == 0 {
				return true
			}
			return validatePath(strings.Join(parts, "/")) == nil
		},
		gen.SliceOfN(4, gen.AlphaString()),
	))

	properties.Property("shell metacharacters are rejected", prop.ForAll(
		func(prefix string, char string) bool {
			return validatePath("src"+prefix+char) != nil
		},
		gen.AlphaString(),
		gen.OneConstOf(";", "&", "|", "$", "`", "<", ">", "\"", "'"),
	))

	properties.Property("destination directories stay under the build root", prop.ForAll(
		func(idx int) bool {
			cfg := Default()
			cat := Categories[idx]
			rel, err := filepath.Rel(cfg.BuildDir(), cfg.DestDir(cat))
			return err == nil && !strings.HasPrefix(rel, "..")
		},
		gen.IntRange(0, len(Categories)-1),
	))

	properties.TestingRun(t)
}
