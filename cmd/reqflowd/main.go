// Command reqflowd runs the request administration service.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	v1 "github.com/goatkit/reqflow/internal/api/v1"
	"github.com/goatkit/reqflow/internal/auth"
	"github.com/goatkit/reqflow/internal/config"
	"github.com/goatkit/reqflow/internal/database"
	"github.com/goatkit/reqflow/internal/notifications"
	"github.com/goatkit/reqflow/internal/repository"
	"github.com/goatkit/reqflow/internal/scheduler"
	"github.com/goatkit/reqflow/internal/workflow"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "reqflowd",
		Short: "Role-based request administration service",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and normalize legacy status values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Println("schema up to date")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	requests := repository.NewRequestRepository(db)
	notes := repository.NewNotificationRepository(db)
	notifier := notifications.New(notes)
	engine := workflow.NewEngine(requests, users, notifier)
	jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	sched, err := scheduler.New(cfg.Scheduler.OverdueSpec, requests, notifier)
	if err != nil {
		return fmt.Errorf("configuring scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	r := gin.Default()
	router := v1.NewAPIRouter(engine, users, requests, notes, jwt, cfg.Auth.ResetTokenTTL)
	router.Register(r)

	log.Printf("reqflowd listening on %s", cfg.Server.Addr)
	return r.Run(cfg.Server.Addr)
}
