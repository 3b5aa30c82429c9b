package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/observability"
	"github.com/xkilldash9x/workd-cli/internal/portal"
	"github.com/xkilldash9x/workd-cli/internal/records"
)

func newListCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "list [file.csv]",
		Short: "Export every portal account to a CSV file",
		Long: `Signs in to the workD portal, walks every page of the user table and
writes the accounts to the given CSV file (default from output.default_list_file).`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			path := cfg.Output().DefaultListFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := validateCSVPath(path); err != nil {
				return err
			}

			logger := observability.GetLogger()
			driver, closeSession, err := openSession(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			defer closeSession()

			if err := driver.NavigateTo(ctx, portal.ScreenListing); err != nil {
				return err
			}
			accounts, err := portal.NewScraper(driver, logger).ScrapeAll(ctx)
			if err != nil {
				return err
			}

			if err := writeAccounts(path, accounts); err != nil {
				return err
			}
			if verify {
				if err := verifyAccounts(path, accounts); err != nil {
					return err
				}
			}
			logger.Info("Wrote account list", zap.String("file", path), zap.Int("accounts", len(accounts)))
			fmt.Fprintf(cmd.OutOrStdout(), "%d accounts written to %s\n", len(accounts), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "read the written file back and check it against the scraped accounts")
	return cmd
}

func writeAccounts(path string, accounts []records.ListedAccount) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return records.EncodeAccounts(f, accounts)
}

// verifyAccounts reads path back and fails unless it holds exactly want.
func verifyAccounts(path string, want []records.ListedAccount) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", path, err)
	}
	defer f.Close()

	got, err := records.DecodeAccounts(f)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", path, err)
	}
	if len(got) != len(want) {
		return fmt.Errorf("verification of %s failed: wrote %d accounts, read back %d", path, len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			// Line 1 is the header.
			return fmt.Errorf("verification of %s failed: line %d differs", path, i+2)
		}
	}
	return nil
}
