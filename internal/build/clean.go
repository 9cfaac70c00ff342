package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanTask deletes the build root.
func CleanTask() Task {
	return NewTask(TaskClean, "Delete the build directory", runClean)
}

func runClean(ctx context.Context, env *Env) error {
	cfg := env.Config

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return err
	}
	buildDir, err := filepath.Abs(cfg.BuildDir())
	if err != nil {
		return err
	}
	srcDir, err := filepath.Abs(cfg.SrcDir())
	if err != nil {
		return err
	}

	switch {
	case within(buildDir, root):
		return fmt.Errorf("refusing to delete %s: it contains the project root", buildDir)
	case within(buildDir, srcDir):
		return fmt.Errorf("refusing to delete %s: it contains the source root %s", buildDir, srcDir)
	case !within(root, buildDir) && !cfg.Clean.Force:
		return fmt.Errorf("refusing to delete %s outside the project root %s (set clean.force to allow)", buildDir, root)
	}

	if _, err := os.Lstat(buildDir); os.IsNotExist(err) {
		env.Logger.Debug(ctx, "Build directory does not exist", "path", buildDir)
		return nil
	}

	env.Logger.Debug(ctx, "Removing build directory", "path", buildDir)
	return os.RemoveAll(buildDir)
}

// within reports whether child is parent or lies below it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
