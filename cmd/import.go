package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/observability"
	"github.com/xkilldash9x/workd-cli/internal/portal"
	"github.com/xkilldash9x/workd-cli/internal/records"
)

type importOptions struct {
	resume      bool
	dryRun      bool
	summaryPath string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create portal accounts from a CSV file",
		Long: `Creates one portal account per row of the input file and writes every
created account, with its issued password, to <file>_imported.csv as soon as
it is created. A row the portal rejects is logged and skipped.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.resume, "resume", false, "skip rows already in the result file and append to it")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the input and print the usernames without signing in")
	cmd.Flags().StringVar(&opts.summaryPath, "summary", "", "write a JSON run summary to this file")
	return cmd
}

func runImport(cmd *cobra.Command, input string, opts importOptions) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	if err := validateCSVPath(input); err != nil {
		return err
	}
	output := importOutputPath(input, cfg.Output().ImportSuffix)
	logger := observability.GetLogger()
	out := cmd.OutOrStdout()

	inputs, err := readInputs(input)
	if err != nil {
		return err
	}

	if opts.resume {
		done, err := readCompleted(output)
		if err != nil {
			return err
		}
		var skipped int
		inputs, skipped = pendingInputs(inputs, done)
		logger.Info("Resuming import", zap.String("file", output), zap.Int("skipped", skipped), zap.Int("pending", len(inputs)))
	}

	if opts.dryRun {
		for _, in := range inputs {
			fmt.Fprintln(out, records.NormalizeUsername(in.Username))
		}
		fmt.Fprintf(out, "%d records would be imported into %s\n", len(inputs), output)
		return nil
	}
	if len(inputs) == 0 {
		fmt.Fprintln(out, "nothing to import")
		return nil
	}

	driver, closeSession, err := openSession(ctx, cfg, cmd.InOrStdin(), out, logger)
	if err != nil {
		return err
	}
	defer closeSession()

	f, sink, err := openResultSink(output, opts.resume)
	if err != nil {
		return err
	}

	provisioner := portal.NewProvisioner(driver, cfg.Portal().QuotaMarkers, logger)
	summary, runErr := provisioner.Run(ctx, inputs, sink)

	if cerr := f.Close(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close %s: %w", output, cerr)
	}
	if opts.summaryPath != "" {
		if err := writeSummary(opts.summaryPath, summary); err != nil {
			logger.Error("Failed to write run summary", zap.String("file", opts.summaryPath), zap.Error(err))
		}
	}

	fmt.Fprintf(out, "%d created, %d rejected, %d over quota, %d failed, %d not attempted; results in %s\n",
		summary.Provisioned, summary.Rejected, summary.QuotaExhausted, summary.Failed, summary.NotAttempted, output)
	return runErr
}

func readInputs(path string) ([]records.ProvisionInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return records.DecodeInputs(f)
}

// openResultSink creates the result file, or opens it for appending when
// resuming into an existing one.
func openResultSink(path string, appendTo bool) (io.Closer, portal.ResultSink, error) {
	if appendTo {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
			}
			return f, records.AppendResultWriter(f), nil
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w, err := records.NewResultWriter(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	return f, w, nil
}
