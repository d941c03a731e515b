package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitbot/internal/cli"
	"github.com/julianstephens/habitbot/internal/keyring"
	"github.com/julianstephens/habitbot/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show a stored secret (masked)."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
	Status KeyringStatusCmd `cmd:"" help:"Check keyring availability and stored secrets."`
}

// KeyringSetCmd stores a secret in the OS keyring
type KeyringSetCmd struct {
	Name   string `arg:"" enum:"database,telegram,openrouter" help:"Secret to store (database, telegram, openrouter)."`
	Secret string `arg:"" help:"Secret value."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	entry, err := keyring.Resolve(cmd.Name)
	if err != nil {
		return err
	}

	if cmd.Name == "database" {
		if !strings.HasPrefix(cmd.Secret, "postgres://") && !strings.HasPrefix(cmd.Secret, "postgresql://") {
			return errors.New("connection string must be a valid PostgreSQL URL")
		}
		if _, err := postgres.ValidateConnString(cmd.Secret); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			ctx.Println("⚠️  Warning: Connection string contains embedded credentials.")
			ctx.Println("   It will be stored as-is in the encrypted OS keyring.")
		}
	}

	if err := keyring.Set(entry, cmd.Secret); err != nil {
		return err
	}

	ctx.Printf("✓ %s secret stored in OS keyring\n", cmd.Name)
	if cmd.Name == "database" {
		ctx.Println("  Use --config keyring (or HABITBOT_DB=keyring) to connect with it")
	}
	return nil
}

// KeyringGetCmd prints a stored secret with its sensitive part masked
type KeyringGetCmd struct {
	Name string `arg:"" enum:"database,telegram,openrouter" help:"Secret to show."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	entry, err := keyring.Resolve(cmd.Name)
	if err != nil {
		return err
	}
	secret, err := keyring.Get(entry)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret found in keyring. Use 'habitbot keyring set %s' to store one", cmd.Name, cmd.Name)
		}
		return err
	}

	if cmd.Name == "database" {
		ctx.Println(maskPassword(secret))
	} else {
		ctx.Println(maskSecret(secret))
	}
	return nil
}

// KeyringDeleteCmd removes a secret from the OS keyring
type KeyringDeleteCmd struct {
	Name string `arg:"" enum:"database,telegram,openrouter" help:"Secret to delete."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	entry, err := keyring.Resolve(cmd.Name)
	if err != nil {
		return err
	}
	if err := keyring.Delete(entry); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret found in keyring", cmd.Name)
		}
		return err
	}
	ctx.Printf("✓ %s secret deleted from OS keyring\n", cmd.Name)
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")

	for _, name := range []string{"database", "telegram", "openrouter"} {
		_, err := keyring.Get(keyring.Secrets[name])
		switch {
		case err == nil:
			ctx.Printf("✓ %s secret is stored\n", name)
		case errors.Is(err, keyring.ErrNotFound):
			ctx.Printf("ℹ No %s secret stored\n", name)
		default:
			ctx.Printf("❌ %s secret: %v\n", name, err)
		}
	}
	return nil
}

// maskPassword masks the password of a postgres URL
func maskPassword(connStr string) string {
	idx := strings.Index(connStr, "://")
	if idx == -1 {
		return connStr
	}
	rest := connStr[idx+3:]
	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return connStr
	}
	userInfo := rest[:at]
	colon := strings.Index(userInfo, ":")
	if colon == -1 {
		return connStr
	}
	return connStr[:idx+3] + userInfo[:colon] + ":****" + rest[at:]
}

// maskSecret keeps the last four characters of a token
func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
