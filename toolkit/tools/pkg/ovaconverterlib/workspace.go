// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	workspaceDirPrefix = "ovaconverter-"

	sourceDirName  = "source"
	stagingDirName = "image"
	mountDirName   = "mnt"
)

// workspace is the scratch directory tree owned by one job.
type workspace struct {
	dir string
}

func newWorkspace(scratchDir string) (*workspace, error) {
	dir := filepath.Join(scratchDir, workspaceDirPrefix+uuid.NewString())

	err := os.Mkdir(dir, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace (%s):\n%w", dir, err)
	}

	ws := &workspace{dir: dir}
	for _, subDir := range []string{ws.sourceDir(), ws.stagingDir()} {
		err = os.Mkdir(subDir, 0o755)
		if err != nil {
			removeErr := os.RemoveAll(dir)
			if removeErr != nil {
				return nil, fmt.Errorf("failed to create (%s):\n%w\nfailed to remove workspace:\n%w", subDir, err,
					removeErr)
			}
			return nil, fmt.Errorf("failed to create (%s):\n%w", subDir, err)
		}
	}

	return ws, nil
}

func (w *workspace) Dir() string {
	return w.dir
}

// sourceDir holds the staged and decompressed source image.
func (w *workspace) sourceDir() string {
	return filepath.Join(w.dir, sourceDirName)
}

// stagingDir holds exactly the files that go into the package.
func (w *workspace) stagingDir() string {
	return filepath.Join(w.dir, stagingDirName)
}

// mountDir is the guest root during customization.
func (w *workspace) mountDir() string {
	return filepath.Join(w.dir, mountDirName)
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

// remove deletes the workspace. It refuses to run while anything is still mounted beneath
// it, since RemoveAll would otherwise descend into host directories through bind mounts.
func (w *workspace) remove(mountsUnder func(string) ([]string, error)) error {
	mounts, err := mountsUnder(w.dir)
	if err != nil {
		return fmt.Errorf("failed to check for mounts under workspace (%s):\n%w", w.dir, err)
	}
	if len(mounts) > 0 {
		return fmt.Errorf("refusing to remove workspace (%s) with active mounts: %v", w.dir, mounts)
	}

	err = os.RemoveAll(w.dir)
	if err != nil {
		return fmt.Errorf("failed to remove workspace (%s):\n%w", w.dir, err)
	}

	return nil
}
