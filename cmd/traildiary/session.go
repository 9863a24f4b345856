package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/traildiary/traildiary/internal/auth"
	"github.com/traildiary/traildiary/internal/config"
	"github.com/traildiary/traildiary/internal/prefs"
	"github.com/traildiary/traildiary/internal/repository/sqlite"
	"github.com/traildiary/traildiary/internal/service"
)

var (
	loginPassword string
	loginRemember bool
)

var loginCmd = &cobra.Command{
	Use:   "login <trail-number-or-nickname>",
	Short: "Verify an account against the local database and remember the session",
	Long: `Checks the password against the local database and, on success, stores
the user id, nickname, trail number and a fresh token in the preference file.
The password is read from --password or, when that is empty, from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		password := loginPassword
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			if password, err = readLine(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		accounts, closeDB, err := openAccounts(cmd, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		res, err := accounts.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}

		store, err := prefs.Open(cfg.PrefsPath, logger)
		if err != nil {
			return err
		}
		store.SetSession(res.User, res.Token)
		store.PutBool(prefs.KeyAutoLogin, loginRemember)

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.User.Nickname, res.User.TrailNumber)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := prefs.Open(cfg.PrefsPath, newLogger(cfg))
		if err != nil {
			return err
		}
		if !store.IsLoggedIn() {
			fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
			return nil
		}
		store.Logout()
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the account of the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := prefs.Open(cfg.PrefsPath, newLogger(cfg))
		if err != nil {
			return err
		}
		if !store.IsLoggedIn() {
			fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) id=%d auto-login=%t\n",
			store.CurrentNickname(),
			store.CurrentTrailNumber(),
			store.CurrentUserID(),
			store.Bool(prefs.KeyAutoLogin, false),
		)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "log in automatically next time")
}

// openAccounts builds an AccountService over the configured database. The
// returned func closes the database.
func openAccounts(cmd *cobra.Command, cfg config.Config) (*service.AccountService, func(), error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set JWT_SECRET to the server's secret)", err)
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureDir(cfg.DBPath); err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg)
	db, err := sqlite.New(cmd.Context(), cfg.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}
	accounts := service.NewAccountService(db.Users(), db.Notebooks(), db.PasswordResets(), passwords, tokens, logger)
	return accounts, func() { db.Close() }, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
