// Package cli implements assessctl, the operator tool for inspecting and
// dry-running assessment catalogs without a running server.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

type options struct {
	catalog string
}

// NewRootCommand creates the assessctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "assessctl",
		Short:         "Inspect and dry-run wellness assessment catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "catalog YAML file (defaults to the built-in catalog)")

	root.AddCommand(
		newTypesCommand(opts),
		newQuestionsCommand(opts),
		newPreviewCommand(opts),
		newCheckCommand(),
	)
	return root
}

func (o *options) scorer() (*scoring.Scorer, error) {
	reg, err := scoring.LoadRegistry(o.catalog)
	if err != nil {
		return nil, err
	}
	return scoring.NewScorer(reg, slog.New(slog.NewTextHandler(io.Discard, nil))), nil
}
