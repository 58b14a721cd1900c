package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strataboard/strata/internal/persist"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string
	var normalize bool

	cmd := &cobra.Command{
		Use:   "export <db-path> <doc-id>",
		Short: "Export a document payload as JSON",
		Long: `Export a persisted document's payload.

By default the stored payload is written verbatim. With --normalize the
payload is round-tripped through the codec first, which substitutes
defaults for malformed fields and clamps every value into range.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], args[1], outPath, normalize, cmd)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "round-trip through the codec before writing")

	return cmd
}

func runExport(opts *RootOptions, dbPath, docID, outPath string, normalize bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	adapter, err := persist.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer adapter.Close()

	payload, revision, err := adapter.LoadDocument(cmd.Context(), docID)
	if errors.Is(err, persist.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("document not found: %s", docID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", docID))
	}
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading document", err)
	}

	formatter.VerboseLog("Exporting %s revision %d", docID, revision)

	if normalize {
		records, err := persist.DecodeDocument(payload, -1, 0, 0)
		if err != nil {
			_ = formatter.Error(ErrCodeDecode, err.Error(), nil)
			return WrapExitError(ExitCommandError, "decoding document", err)
		}
		payload, err = persist.EncodeDocument(records)
		if err != nil {
			_ = formatter.Error(ErrCodeDecode, err.Error(), nil)
			return WrapExitError(ExitCommandError, "re-encoding document", err)
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err == nil {
		payload = pretty.Bytes()
	}

	if outPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	}

	if err := os.WriteFile(outPath, append(payload, '\n'), 0o644); err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "writing output", err)
	}

	formatter.VerboseLog("Wrote %s", outPath)
	return nil
}
