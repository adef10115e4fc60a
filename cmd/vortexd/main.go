package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vortexlabs/vortexd/internal/config"
	"github.com/vortexlabs/vortexd/internal/interface/tcp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func mainAction(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	log.Infof("vortexd config: %s", cfg)

	server := tcp.NewServer(cfg.Listen, cfg.AppService(), cfg.RepoManager())

	log.Debug("starting coordinator...")
	if err := cfg.AppService().Start(); err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	log.RegisterExitHandler(func() {
		server.Stop()
		cfg.AppService().Stop()
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Debug("shutting down coordinator...")
	log.Exit(0)

	return nil
}

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "vortexd"
	app.Usage = "run or manage the vortexd CoinJoin coordinator"
	app.UsageText = "Run the coordinator with:\n\tvortexd\nManage it with:\n\tvortexd [global options] command [command options]"
	app.Commands = append(
		app.Commands,
		roundInfoCmd,
		roundsInTimeRangeCmd,
		banListCmd,
		unbanCmd,
	)
	app.Action = mainAction

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
