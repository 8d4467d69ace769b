// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package safemount

import (
	"github.com/hashicorp/go-multierror"
	"github.com/moby/sys/mountinfo"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
)

// MountSet is an ordered stack of mounts. Release unmounts in reverse order.
type MountSet struct {
	executor  shell.Executor
	mounts    []*Mount
	isMounted func(string) (bool, error)
}

type MountSetOption func(*MountSet)

// WithMountCheck replaces the mount table lookup used to skip targets that are already unmounted.
func WithMountCheck(isMounted func(string) (bool, error)) MountSetOption {
	return func(s *MountSet) {
		s.isMounted = isMounted
	}
}

func NewMountSet(executor shell.Executor, options ...MountSetOption) *MountSet {
	s := &MountSet{
		executor:  executor,
		isMounted: mountinfo.Mounted,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *MountSet) Mount(source string, target string, fstype string, options []string) error {
	mount, err := NewMount(s.executor, source, target, fstype, options)
	if err != nil {
		return err
	}

	s.push(mount)
	return nil
}

func (s *MountSet) BindMount(source string, target string) error {
	mount, err := NewBindMount(s.executor, source, target)
	if err != nil {
		return err
	}

	s.push(mount)
	return nil
}

func (s *MountSet) push(mount *Mount) {
	mount.isMounted = s.isMounted
	s.mounts = append(s.mounts, mount)
}

// Targets lists the active mount targets in mount order.
func (s *MountSet) Targets() []string {
	targets := make([]string, 0, len(s.mounts))
	for _, mount := range s.mounts {
		targets = append(targets, mount.Target())
	}
	return targets
}

// Release unmounts every member in reverse mount order. A failure does not stop the
// remaining unmounts; all failures are returned together.
func (s *MountSet) Release() error {
	var result *multierror.Error

	remaining := []*Mount(nil)
	for i := len(s.mounts) - 1; i >= 0; i-- {
		mount := s.mounts[i]
		err := mount.CleanClose()
		if err != nil {
			result = multierror.Append(result, err)
			remaining = append([]*Mount{mount}, remaining...)
		}
	}

	s.mounts = remaining
	return result.ErrorOrNil()
}

// MountsUnder lists the active mount points at or beneath dir.
func MountsUnder(dir string) ([]string, error) {
	infos, err := mountinfo.GetMounts(mountinfo.PrefixFilter(dir))
	if err != nil {
		return nil, err
	}

	mountPoints := make([]string, 0, len(infos))
	for _, info := range infos {
		mountPoints = append(mountPoints, info.Mountpoint)
	}
	return mountPoints, nil
}
