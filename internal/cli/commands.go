package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

func newTypesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List assessment types in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := opts.scorer()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			reg := sc.Registry()
			for _, t := range reg.Types() {
				lo, hi, _ := reg.Bounds(t.ID)
				fmt.Fprintf(out, "%-12s %-28s %-4s questions=%-2d range=[%g, %g]\n",
					t.ID, t.Name, t.Aggregation, len(t.Questions), lo, hi)
			}
			return nil
		},
	}
}

func newQuestionsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "questions <type>",
		Short: "Print the questions of an assessment type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := opts.scorer()
			if err != nil {
				return err
			}
			cfg, err := sc.Registry().Get(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			bold := color.New(color.Bold).SprintFunc()
			fmt.Fprintln(out, bold(cfg.Name))
			for _, q := range cfg.Questions {
				kind := "one of"
				if q.MultiSelect {
					kind = "any of"
				}
				optional := ""
				if !q.IsRequired() {
					optional = " (optional)"
				}
				fmt.Fprintf(out, "  %s%s: %s\n    %s: %s\n", q.Key, optional, q.Text, kind, strings.Join(q.AllowedValues, " | "))
			}
			return nil
		},
	}
}

func newPreviewCommand(opts *options) *cobra.Command {
	var answersFile string
	cmd := &cobra.Command{
		Use:   "preview <type>",
		Short: "Score an answers file without storing anything",
		Long: `Score a JSON answers file against an assessment type. The file holds
either {"answers": {...}} or the bare answers object. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := opts.scorer()
			if err != nil {
				return err
			}
			answers, err := readAnswers(cmd.InOrStdin(), answersFile)
			if err != nil {
				return err
			}
			res, err := sc.Preview(args[0], answers)
			if err != nil {
				return err
			}
			cfg, _ := sc.Registry().Get(args[0])
			printResult(cmd.OutOrStdout(), cfg, res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&answersFile, "answers", "a", "", "JSON answers file, or - for stdin")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config <catalog-file>",
		Short: "Validate a catalog file and report configuration errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := scoring.LoadRegistry(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warn := color.New(color.FgYellow).SprintFunc()
			for _, t := range reg.Types() {
				fmt.Fprintf(out, "%s ok\n", t.ID)
				for _, u := range reg.Unscored(t.ID) {
					fmt.Fprintf(out, "  %s %s has no score entry and scores the default\n", warn("warning:"), u)
				}
			}
			return nil
		},
	}
}

func readAnswers(stdin io.Reader, path string) (scoring.Answers, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	var envelope struct {
		Answers scoring.Answers `json:"answers"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Answers != nil {
		return envelope.Answers, nil
	}
	var bare scoring.Answers
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return bare, nil
}

// tierColor shades tiers from green (lowest) to red (highest).
func tierColor(cfg scoring.TypeConfig, tier string) *color.Color {
	tiers := append([]scoring.RiskTier(nil), cfg.RiskTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinScore < tiers[j].MinScore })
	for i, t := range tiers {
		if t.Tier != tier {
			continue
		}
		switch {
		case i == 0:
			return color.New(color.FgGreen, color.Bold)
		case i == len(tiers)-1:
			return color.New(color.FgRed, color.Bold)
		default:
			return color.New(color.FgYellow, color.Bold)
		}
	}
	return color.New(color.Bold)
}

func printResult(out io.Writer, cfg scoring.TypeConfig, res *scoring.ScoringResult) {
	fmt.Fprintf(out, "%s: %g ", cfg.Name, res.AggregateScore)
	tierColor(cfg, res.RiskTier).Fprintln(out, res.RiskTier)
	if res.RiskDescription != "" {
		fmt.Fprintf(out, "  %s\n", res.RiskDescription)
	}

	keys := make([]string, 0, len(res.SubScores))
	for k := range res.SubScores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %g\n", k, res.SubScores[k])
	}
	if res.DominantDimension != "" {
		fmt.Fprintf(out, "  dominant dimension: %s %v\n", res.DominantDimension, res.Dimensions)
	}
	for _, r := range res.Recommendations {
		fmt.Fprintf(out, "  - %s\n", r)
	}
}
