package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ariefcatur/foodies-backoffice/internal/auth"
	"github.com/ariefcatur/foodies-backoffice/internal/config"
	"github.com/ariefcatur/foodies-backoffice/internal/postgres"
	"github.com/ariefcatur/foodies-backoffice/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const versionTimeFormat = "20060102150405"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{Use: "ctl", Short: "foodies back-office operations"}
	rootCmd.AddCommand(
		migrateUpCommand(),
		migrateDownCommand(),
		migrateCreateCommand(),
		issueSessionCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func mustConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	return cfg
}

func migrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postgres.MigrateUp(mustConfig().PostgresDSN); err != nil {
				return err
			}
			fmt.Println("Migrated up")
			return nil
		},
	}
}

func migrateDownCommand() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate-down",
		Short: "roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postgres.MigrateDown(mustConfig().PostgresDSN, steps); err != nil {
				return err
			}
			fmt.Printf("Rolled back %d step(s)\n", steps)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func migrateCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-create [name]",
		Short: "create empty up/down sql migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := time.Now().Format(versionTimeFormat)
			up := filepath.Join(postgres.MigrationsDir, fmt.Sprintf("%s_%s.up.sql", version, args[0]))
			down := filepath.Join(postgres.MigrationsDir, fmt.Sprintf("%s_%s.down.sql", version, args[0]))
			if err := os.WriteFile(up, []byte{}, 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(down, []byte{}, 0o644); err != nil {
				return err
			}
			fmt.Println("Created SQL up script:", up)
			fmt.Println("Created SQL down script:", down)
			return nil
		},
	}
}

func issueSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "issue-session [user_id]",
		Short: "issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user_id: %w", err)
			}
			cfg := mustConfig()
			rdb := redisx.New(cfg.RedisAddr)
			defer rdb.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			token, err := (&auth.SessionStore{Redis: rdb, TTL: cfg.SessionTTL}).Issue(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
