package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/deps"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/ui"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		Short:   "Check the whole planning root for prerequisite cycles",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.store.Validate(cmd.Context())
			if report == nil {
				return err
			}
			if a.jsonOutput() {
				if jerr := outputJSON(a.out, report); jerr != nil {
					return jerr
				}
			} else {
				a.printReport(report, err)
			}
			return err
		},
	}
}

// printReport writes the human form of a validation run. A cycle error is
// left for the caller to return.
func (a *app) printReport(report *deps.Report, err error) {
	var cerr *deps.CircularDependencyError
	if errors.As(err, &cerr) {
		fmt.Fprintf(a.out, "%s %d objects, cycle found\n", ui.RenderFail(ui.IconFail), report.Objects)
	} else {
		fmt.Fprintf(a.out, "%s %d objects, no cycles\n", ui.RenderPass(ui.IconPass), report.Objects)
	}
	printFindings(a, report.Findings)
}

func printFindings(a *app, findings []deps.Finding) {
	for _, f := range findings {
		fmt.Fprintf(a.out, "%s %s: %s\n", ui.RenderWarn(ui.IconWarn), f.Kind, f.Message)
		for _, p := range f.Paths {
			fmt.Fprintf(a.out, "    %s\n", ui.RenderMuted(a.rel(p)))
		}
	}
}

func newLintCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:     "lint",
		Short:   "Report id collisions, dangling prerequisites and unreadable files",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.store.Inventory(cmd.Context())
			if err != nil {
				return err
			}
			findings := deps.Lint(inv)
			if a.jsonOutput() {
				if findings == nil {
					findings = []deps.Finding{}
				}
				if err := outputJSON(a.out, findings); err != nil {
					return err
				}
			} else if len(findings) == 0 {
				fmt.Fprintf(a.out, "%s no problems found\n", ui.RenderPass(ui.IconPass))
			} else {
				printFindings(a, findings)
			}
			if strict && len(findings) > 0 {
				return &exitError{code: 1, err: fmt.Errorf("%d lint findings", len(findings))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when anything is reported")
	return cmd
}

func newGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "graph",
		Short:   "Print the prerequisite graph as a Mermaid flowchart",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.store.Inventory(cmd.Context())
			if err != nil {
				return err
			}
			return deps.WriteMermaid(a.out, inv)
		},
	}
}
