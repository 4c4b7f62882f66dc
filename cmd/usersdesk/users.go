package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/usersdesk/usersdesk/internal/auth"
	"github.com/usersdesk/usersdesk/internal/config"
	"github.com/usersdesk/usersdesk/internal/db"
)

const accountCommandTimeout = 15 * time.Second

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage dashboard operator accounts.",
}

// passwordFlags are shared by every command that sets an operator password.
type passwordFlags struct {
	password string
	stdin    bool
	generate bool
}

func (f *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.password, "password", "", "Password for the account (discouraged; prefer --password-stdin)")
	cmd.Flags().BoolVar(&f.stdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVar(&f.generate, "generate-password", false, "Generate a random password and print it")
}

var (
	bootstrapAdminEmail string
	bootstrapAdminPass  passwordFlags

	addAccountEmail string
	addAccountRole  string
	addAccountPass  passwordFlags
)

// accountStore is the subset of db.Queries the account commands use.
type accountStore interface {
	CountAuthAdmins(ctx context.Context) (int64, error)
	GetAuthUserByEmail(ctx context.Context, email string) (db.AuthUser, error)
	CreateAuthUser(ctx context.Context, arg db.CreateAuthUserParams) (db.AuthUser, error)
}

var _ accountStore = (*db.Queries)(nil)

var errAdminExists = errors.New("admin user already exists")

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the first admin user (idempotent if an admin already exists).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := auth.NormalizeEmail(bootstrapAdminEmail)
		if email == "" {
			return errors.New("--email is required")
		}
		password, generated, err := resolvePassword(cmd, bootstrapAdminPass)
		if err != nil {
			return err
		}

		err = withAccountStore(cmd.Context(), func(ctx context.Context, q accountStore) error {
			return bootstrapAdmin(ctx, q, email, password)
		})
		if errors.Is(err, errAdminExists) {
			cmd.Println("admin user already exists; nothing to do")
			return nil
		}
		if err != nil {
			return err
		}

		cmd.Printf("created admin user: %s\n", email)
		if generated {
			cmd.Printf("generated password: %s\n", password)
		}
		return nil
	},
}

var addAccountCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an operator account with the given role.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := auth.NormalizeEmail(addAccountEmail)
		if email == "" {
			return errors.New("--email is required")
		}
		role := strings.ToLower(strings.TrimSpace(addAccountRole))
		if !auth.IsValidRole(role) {
			return fmt.Errorf("--role must be one of: %s, %s", auth.RoleAdmin, auth.RoleViewer)
		}
		password, generated, err := resolvePassword(cmd, addAccountPass)
		if err != nil {
			return err
		}

		err = withAccountStore(cmd.Context(), func(ctx context.Context, q accountStore) error {
			return createAccount(ctx, q, email, password, role)
		})
		if err != nil {
			return err
		}

		cmd.Printf("created %s user: %s\n", role, email)
		if generated {
			cmd.Printf("generated password: %s\n", password)
		}
		return nil
	},
}

func withAccountStore(parent context.Context, fn func(ctx context.Context, q accountStore) error) error {
	cfg, err := config.Load()
	if err != nil {
		return configError(err)
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, accountCommandTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.New(pool))
}

// bootstrapAdmin creates the first admin account. It returns errAdminExists
// when any admin is already present.
func bootstrapAdmin(ctx context.Context, q accountStore, email, password string) error {
	adminCount, err := q.CountAuthAdmins(ctx)
	if err != nil {
		return err
	}
	if adminCount > 0 {
		return errAdminExists
	}
	return createAccount(ctx, q, email, password, auth.RoleAdmin)
}

func createAccount(ctx context.Context, q accountStore, email, password, role string) error {
	if errs := auth.ValidateLogin(email, password); !errs.Empty() {
		msg := errs.Email
		if msg == "" {
			msg = errs.Password
		}
		return errors.New(strings.ToLower(msg[:1]) + msg[1:])
	}

	if _, err := q.GetAuthUserByEmail(ctx, email); err == nil {
		return fmt.Errorf("user already exists: %s", email)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = q.CreateAuthUser(ctx, db.CreateAuthUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
	return err
}

func resolvePassword(cmd *cobra.Command, flags passwordFlags) (string, bool, error) {
	if flags.stdin && flags.generate {
		return "", false, errors.New("--password-stdin and --generate-password are mutually exclusive")
	}
	if flags.stdin && flags.password != "" {
		return "", false, errors.New("--password-stdin and --password are mutually exclusive")
	}
	if flags.generate && flags.password != "" {
		return "", false, errors.New("--generate-password and --password are mutually exclusive")
	}

	switch {
	case flags.stdin:
		raw, err := readStdinLine()
		if err != nil {
			return "", false, err
		}
		password := strings.TrimRight(raw, "\r\n")
		if password == "" {
			return "", false, errors.New("password is empty")
		}
		return password, false, nil
	case flags.generate:
		password, err := generatePassword(24)
		if err != nil {
			return "", false, err
		}
		return password, true, nil
	case flags.password != "":
		return flags.password, false, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", false, errors.New("no password provided (use --password, --password-stdin, or --generate-password)")
	}

	cmd.Print("Password: ")
	pass1, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", false, err
	}
	if len(pass1) == 0 {
		return "", false, errors.New("password is empty")
	}

	cmd.Print("Confirm password: ")
	pass2, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", false, err
	}
	if string(pass1) != string(pass2) {
		return "", false, errors.New("passwords do not match")
	}
	return string(pass1), false, nil
}

func readStdinLine() (string, error) {
	in, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if in.Mode()&os.ModeCharDevice != 0 {
		return "", errors.New("stdin is a terminal; use --password or omit to prompt")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}

func generatePassword(length int) (string, error) {
	if length < 16 {
		return "", errors.New("password length too short")
	}
	const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const alphabetLen = byte(len(alphabet))
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[b[i]%alphabetLen]
	}
	return string(b), nil
}

func init() {
	usersCmd.AddCommand(bootstrapAdminCmd, addAccountCmd)

	bootstrapAdminCmd.Flags().StringVar(&bootstrapAdminEmail, "email", "", "Email address for the admin user")
	bootstrapAdminPass.register(bootstrapAdminCmd)
	_ = bootstrapAdminCmd.MarkFlagRequired("email")

	addAccountCmd.Flags().StringVar(&addAccountEmail, "email", "", "Email address for the account")
	addAccountCmd.Flags().StringVar(&addAccountRole, "role", auth.RoleViewer, "Role: admin or viewer")
	addAccountPass.register(addAccountCmd)
	_ = addAccountCmd.MarkFlagRequired("email")
}
