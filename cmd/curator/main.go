// Package main is the curator command line: it signs calls with a local key
// and applies them to the rounds database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"round-curator/internal/config"
	"round-curator/internal/identity"
	"round-curator/internal/logger"
	"round-curator/internal/round"
	"round-curator/internal/service"

	dbpkg "round-curator/internal/db"
)

var (
	keyHex string
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:           "curator",
	Short:         "Sign and apply curation round calls",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&keyHex, "key", "k", "", "hex signing key (default $CURATOR_KEY)")
}

func main() {
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}
	cfg = config.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openService connects to the database named by DATABASE_URL. The CLI has no
// in-memory mode since each invocation is a separate process.
func openService() (*service.Service, error) {
	if !cfg.Persistent() {
		return nil, errors.New("DATABASE_URL is required")
	}
	gormDB, err := dbpkg.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := dbpkg.AutoMigrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	gate := round.Gate{Controller: round.Identity(cfg.ControllerIdentity), Enforce: cfg.EnforceGate}
	return service.New(dbpkg.NewGormStore(gormDB), gate, round.SystemClock, logger.New(cfg.Debug)), nil
}

func signingKey() (identity.Key, error) {
	s := keyHex
	if s == "" {
		s = os.Getenv("CURATOR_KEY")
	}
	if strings.TrimSpace(s) == "" {
		return identity.Key{}, errors.New("no signing key: pass --key or set CURATOR_KEY")
	}
	return identity.ParseKey(s)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
