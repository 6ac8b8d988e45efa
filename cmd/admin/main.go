// Command admin is the operator CLI: schema setup, role changes, demo data
// and a quick look at the audit trail.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"healthportal/backend/internal/account"
	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/logging"
	"healthportal/backend/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// cli carries what every subcommand needs once the root command has run.
type cli struct {
	cfg      config.Config
	log      *zap.Logger
	store    *storage.Service
	accounts *account.Service

	databaseURL string
	verbose     bool
}

func (a *cli) open(ctx context.Context) error {
	if a.databaseURL != "" {
		a.cfg.DatabaseURL = a.databaseURL
	}
	store, err := storage.Connect(ctx, a.cfg, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return err
	}
	if err := storage.AutoMigrate(store.DB); err != nil {
		store.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.store = store
	a.accounts = account.NewService(store, audit.NewLogger(store, a.log), nil, account.Throttle{}, a.log)
	return nil
}

func (a *cli) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &cli{cfg: cfg}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Health portal operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := a.cfg.LogLevel
			if a.verbose {
				level = "debug"
			}
			log, err := logging.New(level, true)
			if err != nil {
				return err
			}
			a.log = log
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.databaseURL, "database-url", "", "Database URL (default: DATABASE_URL)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		initDBCmd(a),
		createAdminCmd(a),
		setRoleCmd(a),
		seedDemoCmd(a),
		auditTailCmd(a),
	)
	return root
}

func initDBCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			// open has already migrated.
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func createAdminCmd(a *cli) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the bootstrap admin unless the username exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("a password is required (--password or ADMIN_PASSWORD)")
			}
			created, err := a.accounts.EnsureAdmin(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "user %q already exists, nothing changed\n", username)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", a.cfg.AdminUsername, "Admin username")
	cmd.Flags().StringVar(&email, "email", a.cfg.AdminEmail, "Admin email")
	cmd.Flags().StringVar(&password, "password", a.cfg.AdminPassword, "Admin password")
	return cmd
}

func setRoleCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username> <user|admin>",
		Short: "Change the role of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.accounts.SetRole(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Username, user.Role)
			return nil
		},
	}
}

func auditTailCmd(a *cli) *cobra.Command {
	var n int
	var action string
	cmd := &cobra.Command{
		Use:   "audit-tail",
		Short: "Print the newest audit rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, _, err := a.store.SearchAuditLogs(storage.AuditFilter{Action: action}, storage.Page{Number: 1, Size: n})
			if err != nil {
				return err
			}
			// Oldest first, like tail.
			for i := len(logs) - 1; i >= 0; i-- {
				printAudit(cmd.OutOrStdout(), logs[i].CreatedAt, logs[i].ActorID, logs[i].Action, logs[i].TargetType, logs[i].TargetID, logs[i].Meta)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", config.DashboardLogLimit, "Number of rows")
	cmd.Flags().StringVar(&action, "action", "", "Only rows with this action")
	return cmd
}

func printAudit(w io.Writer, at time.Time, actorID *uint, action, targetType, targetID, meta string) {
	actor := "-"
	if actorID != nil {
		actor = strconv.FormatUint(uint64(*actorID), 10)
	}
	target := targetType
	if targetID != "" {
		target += ":" + targetID
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", at.Format(time.RFC3339), actor, action, target, meta)
}

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
