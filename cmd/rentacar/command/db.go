// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"fmt"

	"github.com/momeni/rentacar/pkg/adapter/config"
	"github.com/momeni/rentacar/pkg/core/repo"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management actions",
	Long: `Database management actions can be chosen by sub-commands.
For a fresh installation, the init sub-command creates the schema and
the web server database role.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database schema and the web server role",
	Long: `Initialize the database schema and the web server role.
The database connection information are read from the configuration
file and an administrative connection is established using the admin
role password line of the .pgpass file in the configured pass-dir
directory. All tables, indices, and constraints are created in one
transaction, the web server role is created (if missing), and a fresh
password is generated for it.

The generated password is recorded in the .pgpass.new file before the
transaction runs and that file is moved over the .pgpass file after a
successful commitment, hence, an interrupted bootstrap can be retried
safely; the web server keeps connecting with whichever password file
matches the database state.`,
	RunE: initDB,
	Args: cobra.NoArgs,
}

func initDB(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	p, err := c.ConnectionPool(ctx, repo.AdminRole)
	if err != nil {
		return fmt.Errorf("creating admin DB pool: %w", err)
	}
	defer p.Close()
	s := c.NewSchemaRepo()
	hasher := c.Database.Hasher()
	change := func(
		ctx context.Context, roles []repo.Role, passwords []string,
	) error {
		return p.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
			return conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
				sq := s.Tx(tx)
				if err := sq.InitSchema(ctx); err != nil {
					return fmt.Errorf("initializing schema: %w", err)
				}
				for i, r := range roles {
					err := sq.SetupRole(
						ctx, c.Database.SuffixedRole(r),
						passwords[i], hasher,
					)
					if err != nil {
						return fmt.Errorf(
							"setting up role %q: %w", r, err,
						)
					}
				}
				return nil
			})
		})
	}
	finalizer, err := c.Database.RenewPasswords(
		ctx, change, repo.NormalRole,
	)
	if err != nil {
		return fmt.Errorf("bootstrapping database: %w", err)
	}
	if err := finalizer(); err != nil {
		return fmt.Errorf("finalizing passwords file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(initCmd)
}
