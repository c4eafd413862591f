package main

import (
	"go.uber.org/zap"

	"github.com/Matir03/ttc-server/internal/app/server"
	"github.com/Matir03/ttc-server/pkg/logging"
)

func main() {
	defer logging.Sync()
	logging.Fatal("game server exited", zap.Error(
		server.NewServer().Start(),
	))
}
