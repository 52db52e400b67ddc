// Package main implements srhctl, the operator CLI for the SRH chat backend.
package main

import (
	"fmt"
	"os"
	"time"

	"srh_chat_go_backend/internal/auth"
	"srh_chat_go_backend/internal/database"
	"srh_chat_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	verbose bool
	logger  = zerolog.Nop()
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "srhctl",
	Short: "Operator commands for the SRH chat backend",
	Long: `srhctl runs maintenance tasks against the SRH chat database.
Database settings come from the same DB_* variables as the API server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	reportCmd.Flags().String("session", "", "session id")
	reportCmd.Flags().String("out", "", "output file (default session-<id>.pdf)")
	_ = reportCmd.MarkFlagRequired("session")

	markCorrectedCmd.Flags().String("myth", "", "myth assessment id")
	_ = markCorrectedCmd.MarkFlagRequired("myth")

	tokenCmd.Flags().String("subject", "", "who the token is for")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(migrateCmd, reportCmd, markCorrectedCmd, tokenCmd)
}

func openDB() (*gorm.DB, error) {
	opts := database.OptionsFromEnv()
	db, err := database.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Driver, err)
	}
	return db, nil
}

func openStore() (services.SessionStore, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return services.NewSessionStoreDB(db, logger), nil
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return id, nil
}

// migrateCmd creates or updates the schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the analysis report of one session as PDF",
	Long: `Write the analysis report of one session as PDF.

Examples:
  srhctl report --session 3f1c... --out report.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuidFlag(cmd, "session")
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = fmt.Sprintf("session-%s.pdf", id)
		}
		store, err := openStore()
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		err = services.NewReportService(store, logger).WriteSessionReport(cmd.Context(), id, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(out)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		return nil
	},
}

var markCorrectedCmd = &cobra.Command{
	Use:   "mark-corrected",
	Short: "Record that a detected myth has been corrected",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuidFlag(cmd, "myth")
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.MarkMythCorrectionProvided(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as corrected\n", id)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token signed with ADMIN_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := auth.NewAuthenticator(os.Getenv("ADMIN_JWT_SECRET")).IssueToken(subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
