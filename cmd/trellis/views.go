package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/discovery"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/timeparsing"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/ui"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <kind> <id>",
		Short:   "Print the file path of an object",
		GroupID: "views",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			p, err := paths.IDToPath(a.root, kind, args[1])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				_, id, _ := paths.PathToID(p)
				return outputJSON(a.out, objectResult{Kind: kind, ID: kind.Prefix() + id, Path: p})
			}
			fmt.Fprintln(a.out, p)
			return nil
		},
	}
}

func newIdentifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "identify <path>",
		Short:   "Print the kind and id of an object file",
		GroupID: "views",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			kind, id, err := paths.PathToID(p)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return outputJSON(a.out, objectResult{Kind: kind, ID: kind.Prefix() + id, Path: p})
			}
			fmt.Fprintf(a.out, "%s %s\n", kind, kind.Prefix()+id)
			return nil
		},
	}
}

func newChildrenCmd(a *app) *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:     "children <kind> <id>",
		Short:   "List the immediate children of an object",
		GroupID: "views",
		Example: `  trellis children project P-web-shop
  trellis children feature F-payment --since yesterday
  trellis children feature F-payment --since -2w`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			children, err := a.store.ListChildren(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			if since != "" {
				t, err := timeparsing.ParseRelativeTime(since, time.Now())
				if err != nil {
					return err
				}
				children = discovery.CreatedSince(children, t)
			}

			if a.jsonOutput() {
				if children == nil {
					children = []types.ChildSummary{}
				}
				return outputJSON(a.out, children)
			}
			if len(children) == 0 {
				fmt.Fprintln(a.out, ui.RenderMuted("no children"))
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tCREATED\tTITLE")
			for _, c := range children {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", orDash(c.ID), orDash(c.Kind), orDash(c.Status), orDash(c.Created), ui.TruncateSimple(orDash(c.Title), 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Only children created at or after this time (-1d, 2025-01-31, \"last monday\")")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// showResult is the --json shape of `trellis show`.
type showResult struct {
	Object types.Object `json:"object"`
	Body   string       `json:"body"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show <kind> <id>",
		Short:   "Show an object and its markdown body",
		GroupID: "views",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			doc, err := a.store.GetObject(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return outputJSON(a.out, showResult{Object: doc.Object, Body: doc.Body})
			}

			o := doc.Object
			fmt.Fprintf(a.out, "%s %s\n", ui.RenderID(o.Kind.Prefix()+o.CleanID()), o.Title)
			fmt.Fprintf(a.out, "%s · %s", o.Kind, ui.RenderStatus(o.Status))
			if o.Priority != "" {
				fmt.Fprintf(a.out, " · priority %s", o.Priority)
			}
			fmt.Fprintln(a.out)
			if o.Parent != "" {
				fmt.Fprintf(a.out, "%s %s\n", ui.RenderMuted("parent:"), o.Parent)
			}
			if len(o.Prerequisites) > 0 {
				fmt.Fprintf(a.out, "%s %s\n", ui.RenderMuted("prerequisites:"), strings.Join(o.Prerequisites, ", "))
			}
			if o.Updated != "" {
				fmt.Fprintf(a.out, "%s %s\n", ui.RenderMuted("updated:"), o.Updated)
			}
			fmt.Fprintf(a.out, "%s %s\n", ui.RenderMuted("file:"), a.rel(o.Path))
			if strings.TrimSpace(doc.Body) != "" {
				fmt.Fprintf(a.out, "\n%s\n", ui.RenderMarkdown(doc.Body))
			}
			return nil
		},
	}
}
