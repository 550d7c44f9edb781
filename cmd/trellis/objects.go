package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/debug"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/deps"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/idgen"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/ui"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/validation"
)

// objectResult is printed by commands that write one object.
type objectResult struct {
	Kind types.Kind `json:"kind"`
	ID   string     `json:"id"`
	Path string     `json:"path"`
}

func (a *app) rel(p string) string {
	if r, err := filepath.Rel(a.root, p); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return p
}

// printWritten reports the object stored at p.
func (a *app) printWritten(verb, p string) error {
	kind, id, err := paths.PathToID(p)
	if err != nil {
		return err
	}
	res := objectResult{Kind: kind, ID: kind.Prefix() + id, Path: p}
	if a.jsonOutput() {
		return outputJSON(a.out, res)
	}
	debug.PrintNormal("%s %s %s\n", ui.RenderPass(ui.IconPass), verb, ui.RenderID(res.ID))
	fmt.Fprintln(a.out, a.rel(p))
	return nil
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		id, parent, title, status, priority string
		body, bodyFile                      string
		prereqs, fields                     []string
	)
	cmd := &cobra.Command{
		Use:     "create <project|epic|feature|task>",
		Short:   "Create a project, epic, feature or task",
		GroupID: "objects",
		Example: `  trellis create project --title "Web shop"
  trellis create epic --parent P-web-shop --title "Checkout"
  trellis create task --parent F-payment --title "Validate card" --prereq T-card-form
  trellis create task --title "Upgrade CI runners"   # standalone task`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile) // #nosec G304 - user-supplied body file
				if err != nil {
					return fmt.Errorf("read body: %w", err)
				}
				body = string(data)
			}
			extra, err := parseFields(fields)
			if err != nil {
				return err
			}
			if id == "" {
				id = idgen.Generate(title, time.Now(), func(candidate string) bool {
					_, err := a.store.GetObject(ctx, kind, candidate)
					return err == nil
				})
				debug.Logf("generated id %s from title\n", id)
			}

			obj := &types.Object{
				Kind:          kind,
				ID:            id,
				Parent:        parent,
				Title:         title,
				Status:        types.Status(status),
				Priority:      priority,
				Prerequisites: prereqs,
			}
			p, err := a.store.CreateObject(ctx, obj, body, extra)
			if err != nil {
				return err
			}
			return a.printWritten("Created", p)
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "Object id, with or without its prefix (default: derived from the title)")
	f.StringVarP(&parent, "parent", "p", "", "Parent id; omit for projects and standalone tasks")
	f.StringVarP(&title, "title", "t", "", "Title")
	f.StringVarP(&status, "status", "s", "", "Initial status (default: open for tasks, draft otherwise)")
	f.StringVar(&priority, "priority", "", "Priority (high|normal|low)")
	f.StringArrayVar(&prereqs, "prereq", nil, "Prerequisite id (repeatable)")
	f.StringVarP(&body, "body", "b", "", "Markdown body")
	f.StringVar(&bodyFile, "body-file", "", "Read the markdown body from a file")
	f.StringArrayVar(&fields, "field", nil, "Extra front-matter field as key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	return cmd
}

func parseFields(fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(fields))
	for _, kv := range fields {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", kv)
		}
		extra[k] = v
	}
	return extra, nil
}

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "complete <task-id>",
		Short:   "Mark a task done and move it to tasks-done",
		GroupID: "objects",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.store.CompleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printWritten("Completed", p)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status <kind> <id> <status>",
		Short:   "Change the status of an object",
		Long:    "Change the status of an object. Setting a task to done is the same as 'trellis complete'.",
		GroupID: "objects",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			status := types.Status(strings.ToLower(strings.TrimSpace(args[2])))
			p, err := a.store.UpdateStatus(cmd.Context(), kind, args[1], status)
			if err != nil {
				return err
			}
			return a.printWritten("Updated", p)
		},
	}
}

func newPrereqsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prereqs",
		Short:   "Inspect and change prerequisites",
		GroupID: "objects",
	}

	setCmd := &cobra.Command{
		Use:   "set <kind> <id> [prereq...]",
		Short: "Replace the prerequisites of an object (none clears them)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := types.ParseKind(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.store.UpdatePrerequisites(ctx, kind, args[1], args[2:]); err != nil {
				return err
			}
			doc, err := a.store.GetObject(ctx, kind, args[1])
			if err != nil {
				return err
			}
			return a.printWritten("Updated", doc.Object.Path)
		},
	}

	var depth int
	treeCmd := &cobra.Command{
		Use:   "tree <id>",
		Short: "Show the prerequisite chain of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.store.Inventory(cmd.Context())
			if err != nil {
				return err
			}
			id := validation.StripPrefix(args[0])
			if _, ok := inv.Objects[id]; !ok {
				return &types.NotFoundError{Kind: "object", ID: args[0]}
			}
			r := deps.NewTreeRenderer(a.out, inv, depth)
			r.StyleFunc = ui.RenderAccent
			r.MutedFunc = ui.RenderMuted
			r.Render(id)
			return nil
		},
	}
	treeCmd.Flags().IntVarP(&depth, "depth", "d", 10, "Maximum depth to descend")

	cmd.AddCommand(setCmd, treeCmd)
	return cmd
}
