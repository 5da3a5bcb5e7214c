package main

import (
	"context"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/routes"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()
	defer utils.CloseRedis()

	db := config.InitDatabase(models.All()...)

	svc := services.New(db, services.Options{
		AdminUsernames:  cfg.AdminUsernames,
		LeaderboardSize: cfg.LeaderboardSize,
	}, engine.SystemClock{}, utils.Logger)

	if cfg.SeedBadgesOnBoot {
		if err := svc.SeedBadges(context.Background()); err != nil {
			utils.Sugar.Fatalf("seed badges: %v", err)
		}
	}

	r := routes.SetupRouter(svc)

	utils.Sugar.Infof("Starting %s on port %s (graceful)", cfg.PlatformName, cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
}
