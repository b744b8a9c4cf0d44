// lendctl: 运维命令行，跑迁移、定时巡检借用、维护分类和管理员
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Gin_postgres_redis_lendshare/config"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/mq"
	"Gin_postgres_redis_lendshare/notify"
	"Gin_postgres_redis_lendshare/obs"
	"Gin_postgres_redis_lendshare/service"

	"github.com/spf13/cobra"
)

type env struct {
	cfg  config.Config
	repo *db.Repo
	core *service.Core
	pub  *mq.Publisher
}

func (e *env) close() {
	if e.pub != nil {
		_ = e.pub.Close()
	}
	if sqlDB, err := e.repo.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// open 连库（顺带迁移）并装好通知投递
func open() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.LogFormat)

	gdb, err := db.ConnectDB(cfg.DSN())
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, repo: db.NewRepo(gdb)}

	var d notify.Dispatcher = notify.NewLogDispatcher(slog.Default())
	if cfg.RabbitURL != "" {
		e.pub, err = mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			e.close()
			return nil, err
		}
		d = notify.NewAMQPDispatcher(e.pub)
	}
	e.core = service.New(e.repo, service.Options{
		Dispatcher:          d,
		Logger:              slog.Default(),
		IsAdminEmail:        cfg.IsAdminEmail,
		LoanDefaultDuration: cfg.LoanDefaultDuration,
		DueSoonWindow:       cfg.DueSoonWindow,
	})
	return e, nil
}

func main() {
	config.LoadEnv()

	root := &cobra.Command{
		Use:           "lendctl",
		Short:         "LendShare maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), sweepCmd(), categoryCmd(), adminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark late loans overdue and send due-soon reminders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := obs.InitTracer(ctx, "lendctl", e.cfg.OTLPEndpoint)
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(context.Background()) }()

			run := func() error {
				res, err := e.core.Sweeper.Sweep(ctx, time.Now())
				if err != nil {
					return err
				}
				slog.Info("sweep done", "overdue", res.Overdue, "due_soon", res.DueSoon)
				return nil
			}
			if every <= 0 {
				return run()
			}

			t := time.NewTicker(every)
			defer t.Stop()
			for {
				if err := run(); err != nil {
					slog.Error("sweep", "err", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "repeat on this interval until interrupted (0 = run once)")
	return cmd
}

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "category", Short: "Manage item categories"}

	var description string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()
			cat, err := e.core.Catalog.CreateCategory(cmd.Context(), args[0], description)
			if err != nil {
				return fmt.Errorf("%s", service.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created category %s (%s)\n", cat.Name, cat.ID)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "category description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()
			cats, err := e.core.Catalog.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Manage administrators"}
	cmd.AddCommand(&cobra.Command{
		Use:   "grant <email>",
		Short: "Give an existing account admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()
			n, err := e.repo.PromoteAdminsByEmail(cmd.Context(), args)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no non-admin account with email %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted admin to %s\n", args[0])
			return nil
		},
	})
	return cmd
}
