package game

import (
	"fmt"

	"github.com/Faultbox/kmx-platformer/internal/assets"
	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
)

// Character is the player's animated model.
type Character struct {
	Skeleton         *formats.Skeleton
	Mesh             *formats.SkinnedMesh
	InverseBindPoses []math.Mat4
}

// NewCharacter pairs a skeleton with its skinned mesh, checking that the mesh
// only references bones the skeleton has.
func NewCharacter(skel *formats.Skeleton, mesh *formats.SkinnedMesh) (*Character, error) {
	numBones := skel.NumBones()
	if err := mesh.ValidateBones(numBones); err != nil {
		return nil, err
	}
	ibp, err := mesh.InverseBindPoses(numBones)
	if err != nil {
		return nil, err
	}

	return &Character{
		Skeleton:         skel,
		Mesh:             mesh,
		InverseBindPoses: ibp.Slice(),
	}, nil
}

// LoadCharacter loads the configured skeleton and skinned mesh.
func LoadCharacter(cfg *config.Config, mgr *assets.Manager) (*Character, error) {
	skel, err := mgr.LoadSkeleton(cfg.Assets.Skeleton)
	if err != nil {
		return nil, fmt.Errorf("loading skeleton: %w", err)
	}
	mesh, err := mgr.LoadSkinnedMesh(cfg.Assets.SkinnedMesh)
	if err != nil {
		return nil, fmt.Errorf("loading skinned mesh: %w", err)
	}

	ch, err := NewCharacter(skel, mesh)
	if err != nil {
		return nil, fmt.Errorf("%s with %s: %w", cfg.Assets.SkinnedMesh, cfg.Assets.Skeleton, err)
	}
	return ch, nil
}
