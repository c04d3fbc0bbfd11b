// Package injector wires the game's dependencies together.
package injector

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/kmx-platformer/internal/assets"
	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/internal/logger"
)

// NewAssetManager mounts every configured search directory. Directories
// that do not exist are skipped with a warning; packs (*.kpak) in a search
// directory are mounted after it.
func NewAssetManager(cfg *config.Config) (*assets.Manager, error) {
	mgr := assets.NewManager()
	mounted := 0

	for _, dir := range cfg.Assets.SearchDirs {
		if err := mgr.AddDir(dir); err != nil {
			logger.Warn("skipping asset directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		mounted++

		n, err := mgr.AddPacks(dir)
		if err != nil {
			mgr.Close()
			return nil, fmt.Errorf("mounting packs in %s: %w", dir, err)
		}
		mounted += n
	}

	if mounted == 0 {
		mgr.Close()
		return nil, fmt.Errorf("no asset sources found in %v", cfg.Assets.SearchDirs)
	}
	return mgr, nil
}
