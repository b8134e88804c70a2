package main

// @title           TCM Tongue Diagnosis API
// @version         1.0
// @description     Tongue photo analysis, scan quota, Stripe billing and scan history.

// @contact.name   API Support
// @contact.email  support@tcmtongue.app

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.apikey  AdminKey
// @in                          header
// @name                        X-Admin-Key

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app"
)

func main() {
	// local development keeps secrets in .env; absence is fine
	_ = godotenv.Load()

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	a := fx.New(app.Module)
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		// Logging might not be ready; fallback to zap example
		zap.NewExample().Sugar().Errorf("failed to start app: %v", err)
		exitCode = 1
		return
	}

	<-a.Done()

	stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel2()
	if err := a.Stop(stopCtx); err != nil {
		zap.NewExample().Sugar().Errorf("failed to stop app: %v", err)
		exitCode = 1
		return
	}
}
