//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/Faultbox/kmx-platformer/internal/assets"
	"github.com/Faultbox/kmx-platformer/internal/config"
	"github.com/Faultbox/kmx-platformer/internal/game"
)

// InitializeWorld loads the player character through mgr and builds the world.
func InitializeWorld(cfg *config.Config, mgr *assets.Manager) (*game.World, error) {
	wire.Build(game.ProviderSet)
	return nil, nil
}
