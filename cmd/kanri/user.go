// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/kanri/kanri/internal/auth"
	authpostgres "github.com/kanri/kanri/internal/auth/postgres"
	"github.com/kanri/kanri/internal/config"
	"github.com/kanri/kanri/internal/store"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	return newUserCmd(nil)
}

func newUserCmd(deps *UserDeps) *cobra.Command {
	if deps == nil {
		deps = &UserDeps{}
	}
	if deps.RepositoryFactory == nil {
		deps.RepositoryFactory = openUserRepository
	}

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create and activate user accounts",
		Long: `Manage user accounts directly in the PostgreSQL database. New accounts are
inactive and cannot log in until activated.`,
	}
	config.RegisterFlagSubset(cmd.PersistentFlags(), "database-url", "hasher", "bcrypt-cost")

	cmd.AddCommand(newUserCreateCmd(deps), newUserActivateCmd(deps))
	return cmd
}

type userCreateOptions struct {
	name          string
	email         string
	password      string
	passwordStdin bool
	activate      bool
}

func newUserCreateCmd(deps *UserDeps) *cobra.Command {
	opts := &userCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserCreate(cmd, deps, opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.password, "password", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	cmd.Flags().BoolVar(&opts.activate, "activate", false, "activate the account immediately")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runUserCreate(cmd *cobra.Command, deps *UserDeps, opts *userCreateOptions) error {
	password := opts.password
	if opts.passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return oops.Code("INVALID_ARGUMENT").With("flag", "password-stdin").Wrapf(err, "reading password")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	ctx := commandContext(cmd)
	users, closeFn, err := openUserService(ctx, cmd, deps)
	if err != nil {
		return err
	}
	defer closeFn()

	user, err := users.Register(ctx, auth.RegisterInput{
		Name:     opts.name,
		Email:    opts.email,
		Password: password,
	})
	if err != nil {
		return err
	}
	cmd.Printf("Created user %s <%s>\n", user.ID, user.Email)

	if opts.activate {
		if _, err := users.Activate(ctx, user.ID); err != nil {
			return err
		}
		cmd.Printf("Activated user %s\n", user.ID)
	}
	return nil
}

func newUserActivateCmd(deps *UserDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Activate a user so they can log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ulid.ParseStrict(args[0])
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").With("id", args[0]).Wrapf(err, "parsing user id")
			}

			ctx := commandContext(cmd)
			users, closeFn, err := openUserService(ctx, cmd, deps)
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := users.Activate(ctx, id)
			if err != nil {
				return err
			}
			cmd.Printf("Activated user %s <%s>\n", user.ID, user.Email)
			return nil
		},
	}
}

func openUserService(ctx context.Context, cmd *cobra.Command, deps *UserDeps) (*auth.UserService, func(), error) {
	path, err := resolveConfigFile()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Read(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.URL == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").With("key", "database.url").
			Errorf("database url is required: set database.url, --database-url or DATABASE_URL")
	}

	repo, closeFn, err := deps.RepositoryFactory(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	users, err := auth.NewUserService(repo, hasher)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return users, closeFn, nil
}

func openUserRepository(ctx context.Context, databaseURL string) (auth.UserRepository, func(), error) {
	pool, err := store.Connect(ctx, databaseURL, store.DefaultConnectOptions())
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return authpostgres.NewUserRepository(pool), pool.Close, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
