package main

import (
	"log"
	"net/http"

	"voxnote/config"
	"voxnote/config/database"
	"voxnote/pkg/logger"
	"voxnote/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Sugar.Fatalf("Failed to migrate database: %v", err)
	}

	handler, hub, err := router.Setup(cfg, db)
	if err != nil {
		logger.Sugar.Fatalf("Failed to set up routes: %v", err)
	}
	// The Hub's event loop runs for the life of the process.
	go hub.Run()

	logger.Sugar.Infof("Voxnote backend listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
