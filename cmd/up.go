package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paperdex/paperdex/internal/boot"
	"github.com/paperdex/paperdex/internal/log"
)

// runUp executes the full boot sequence: terminate leftover services, clear
// marker files, settle, initialize the store, ensure the admin account, then
// launch the web server in the background and the scheduler in the
// foreground. The command's lifetime is the scheduler's lifetime.
func runUp(logger log.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("boot sequence starting", "version", AppVersion)

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own binary: %w", err)
	}

	webPID, schedPID := cfg.PIDFiles()

	seq := boot.NewSequencer(boot.Config{
		Keywords: []string{"paperdex serve", "paperdex scheduler"},
		Markers: []boot.Marker{
			boot.NewPIDFile(webPID),
			boot.NewPIDFile(schedPID),
		},
		Pause:   cfg.BootPause,
		Sweeper: boot.NewProcessSweeper(logger),
		Store:   boot.NewStoreBootstrapper(cfg.PostgresURL()),
		Provisioner: boot.NewAdminBootstrapper(cfg.PostgresConnectionString(), boot.AdminAccount{
			Username:  cfg.AdminUsername,
			Password:  cfg.AdminPassword,
			FirstName: cfg.AdminFirstName,
			LastName:  cfg.AdminLastName,
			Email:     cfg.AdminEmail,
		}, logger),
		Launcher: boot.NewServiceLauncher(binary, logger),
	}, logger)

	if _, err := seq.Run(ctx); err != nil {
		return fmt.Errorf("boot sequence: %w", err)
	}
	return nil
}
