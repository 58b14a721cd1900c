package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/persist"
)

// LayerSummary is the inspect output for one layer.
type LayerSummary struct {
	Index      int               `json:"index"`
	Order      int               `json:"order"`
	Position   layer.Vec2        `json:"position"`
	Scale      layer.Vec2        `json:"scale"`
	Rotation   float64           `json:"rotation"`
	Visible    bool              `json:"visible"`
	Locked     bool              `json:"locked"`
	Adjusted   bool              `json:"adjusted"`
	SourceFile string            `json:"source_file,omitempty"`
	Adjust     layer.Adjustments `json:"adjustments"`
}

// InspectResult is the inspect output for one document.
type InspectResult struct {
	DocID    string         `json:"doc_id"`
	Revision int64          `json:"revision"`
	Layers   []LayerSummary `json:"layers"`
}

// DocumentListing is the inspect output when no document id is given.
type DocumentListing struct {
	Documents []persist.DocumentInfo `json:"documents"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <db-path> [doc-id]",
		Short: "Inspect persisted documents",
		Long: `Inspect a document database.

With only a database path, lists all persisted documents. With a
document id, decodes the document and prints per-layer state. Decoding
uses the same recovering codec as the engine's load path, so partially
malformed documents still render.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			docID := ""
			if len(args) > 1 {
				docID = args[1]
			}
			return runInspect(rootOpts, args[0], docID, cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, dbPath, docID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	adapter, err := persist.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer adapter.Close()

	if docID == "" {
		return inspectListing(formatter, adapter, cmd)
	}
	return inspectDocument(formatter, adapter, docID, cmd)
}

func inspectListing(formatter *OutputFormatter, adapter *persist.Adapter, cmd *cobra.Command) error {
	infos, err := adapter.ListDocuments(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing documents", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(DocumentListing{Documents: infos})
	}

	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "no documents")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%s\trev %d\t%s\n", info.DocID, info.Revision, info.UpdatedAt)
	}
	return nil
}

func inspectDocument(formatter *OutputFormatter, adapter *persist.Adapter, docID string, cmd *cobra.Command) error {
	payload, revision, err := adapter.LoadDocument(cmd.Context(), docID)
	if errors.Is(err, persist.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("document not found: %s", docID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", docID))
	}
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading document", err)
	}

	formatter.VerboseLog("Loaded %s revision %d (%d bytes)", docID, revision, len(payload))

	records, err := persist.DecodeDocument(payload, -1, 0, 0)
	if err != nil {
		_ = formatter.Error(ErrCodeDecode, err.Error(), nil)
		return WrapExitError(ExitCommandError, "decoding document", err)
	}

	result := InspectResult{DocID: docID, Revision: revision}
	for i, r := range records {
		result.Layers = append(result.Layers, LayerSummary{
			Index:      i,
			Order:      r.Order,
			Position:   r.Position,
			Scale:      r.Scale,
			Rotation:   r.Rotation,
			Visible:    r.Visible,
			Locked:     r.Locked,
			Adjusted:   !r.Adjustments.IsDefault(),
			SourceFile: r.Source.Filename,
			Adjust:     r.Adjustments,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s (rev %d, %d layers)\n", docID, revision, len(records))
	for _, l := range result.Layers {
		flags := ""
		if !l.Visible {
			flags += " hidden"
		}
		if l.Locked {
			flags += " locked"
		}
		if l.Adjusted {
			flags += " adjusted"
		}
		fmt.Fprintf(formatter.Writer, "  [%d] order=%d pos=(%.1f,%.1f) scale=(%.2f,%.2f) rot=%.1f%s\n",
			l.Index, l.Order, l.Position.X, l.Position.Y, l.Scale.X, l.Scale.Y, l.Rotation, flags)
	}
	return nil
}
