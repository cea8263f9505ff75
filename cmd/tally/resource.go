package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ramarlina/tally-cli/pkg/client"
	cctx "github.com/ramarlina/tally-cli/pkg/context"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/ramarlina/tally-cli/pkg/prompt"
	"github.com/ramarlina/tally-cli/pkg/services"
	"github.com/spf13/cobra"
)

// resourceCmds holds the command of every catalog collection by name.
var resourceCmds = map[string]*cobra.Command{}

func init() {
	for _, e := range services.Catalog {
		cmd := newResourceCmd(e)
		resourceCmds[e.Name] = cmd
		rootCmd.AddCommand(cmd)
	}

	addUserCommands(resourceCmds["users"])
	addTimeReportCommands(resourceCmds["timereport"])
	addSpecialDayCommands(resourceCmds["specialday"])
	addFollowUpCommands(resourceCmds["followup"])
	addSystemCommands(resourceCmds["system"])
}

func newResourceCmd(e services.Entry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   e.Name,
		Short: e.Short,
		Long:  fmt.Sprintf("%s (%s)", e.Short, e.Path),
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(
		newListCmd(e),
		newGetCmd(e),
		newCreateCmd(e),
		newUpdateCmd(e),
		newRmCmd(e),
		newValidateCmd(e),
		newSearchCmd(e),
		newActionCmd(e),
	)
	return cmd
}

// records returns the untyped client for e.
func records(e services.Entry) (*client.Resource[models.Record], error) {
	svc, _, err := getServices()
	if err != nil {
		return nil, err
	}
	return svc.Records(e.Name)
}

func parseActive(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("--active must be true or false, got %q", s)
	}
	return &v, nil
}

func newListCmd(e services.Entry) *cobra.Command {
	var active string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List " + e.Name,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			status, err := parseActive(active)
			if err != nil {
				return out.Error(err)
			}
			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}

			var recs []models.Record
			if status == nil {
				recs, err = res.List(cmd.Context())
			} else {
				recs, err = res.ListByStatus(cmd.Context(), *status)
			}
			if err != nil {
				return out.Error(err)
			}

			// Update context to the first entity
			if len(recs) > 0 {
				if id := recordID(recs[0]); id != "" {
					cctx.Set(id, e.Name) //nolint:errcheck
				}
			}
			return renderRecords(out, e.Name, recs)
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "Only active (true) or inactive (false) entries")
	return cmd
}

func newGetCmd(e services.Entry) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|this>",
		Short: "Show one of " + e.Name,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			id, _, err := cctx.ResolveTarget(args[0], e.Name)
			if err != nil {
				return out.Error(err)
			}
			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}

			rec, err := res.Get(cmd.Context(), id)
			if err != nil {
				return out.Error(err)
			}

			cctx.Set(id, e.Name) //nolint:errcheck
			return renderRecord(out, *rec)
		},
	}
}

func newCreateCmd(e services.Entry) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create -f <file|->",
		Short: "Create one of " + e.Name + " from JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			rec, err := readRecord(file)
			if err != nil {
				return out.Error(err)
			}
			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}

			created, err := res.Create(cmd.Context(), &rec)
			if err != nil {
				return out.Error(err)
			}

			id := recordID(*created)
			if id != "" {
				cctx.Set(id, e.Name) //nolint:errcheck
			}
			if out.IsStructured() {
				return out.Success(created)
			}
			if out.IsRaw() {
				out.Println(id)
				return nil
			}
			out.Done("Created %s %s", e.Name, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the entity, - for stdin")
	return cmd
}

func newUpdateCmd(e services.Entry) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update [id|this] -f <file|->",
		Short: "Replace one of " + e.Name + " with JSON",
		Long: `Replace an entity with the JSON document given by -f.

The id is taken from the argument when given, otherwise from the document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			rec, err := readRecord(file)
			if err != nil {
				return out.Error(err)
			}
			if len(args) == 1 {
				id, _, err := cctx.ResolveTarget(args[0], e.Name)
				if err != nil {
					return out.Error(err)
				}
				if n, err := strconv.ParseInt(id, 10, 64); err == nil {
					rec["id"] = n
				} else {
					rec["id"] = id
				}
			}
			if recordID(rec) == "" {
				return out.Error(fmt.Errorf("the entity needs an id: pass it as an argument or set \"id\" in the document"))
			}

			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}
			updated, err := res.Update(cmd.Context(), &rec)
			if err != nil {
				return out.Error(err)
			}

			id := recordID(rec)
			cctx.Set(id, e.Name) //nolint:errcheck
			if out.IsStructured() {
				return out.Success(updated)
			}
			out.Done("Updated %s %s", e.Name, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the entity, - for stdin")
	return cmd
}

func newRmCmd(e services.Entry) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id|this>",
		Aliases: []string{"delete"},
		Short:   "Delete one of " + e.Name,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			id, fromContext, err := cctx.ResolveTarget(args[0], e.Name)
			if err != nil {
				return out.Error(err)
			}
			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}

			what := fmt.Sprintf("%s %s", e.Name, id)
			deleted, err := prompt.DeleteConfirmed(cmd.Context(), getConfirmer(), what, func(ctx context.Context) error {
				return res.Delete(ctx, id)
			})
			if err != nil {
				return out.Error(err)
			}

			if deleted && fromContext {
				cctx.Forget(e.Name) //nolint:errcheck
			}
			if out.IsStructured() {
				return out.Success(map[string]any{"id": id, "deleted": deleted})
			}
			if !deleted {
				out.Println("Cancelled")
				return nil
			}
			out.Done("Deleted %s", what)
			return nil
		},
	}
}

func newValidateCmd(e services.Entry) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "validate <field> <value>",
		Short: "Check a field value with the server",
		Long: `Ask the server whether a value is acceptable, e.g. whether an email
address is already in use. Pass --id when checking an existing entity so
that its own value is not reported as a duplicate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			field, value := args[0], args[1]
			if id != "" {
				resolved, _, err := cctx.ResolveTarget(id, e.Name)
				if err != nil {
					return out.Error(err)
				}
				id = resolved
			}
			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}

			v, err := res.ValidateField(cmd.Context(), id, field, value)
			if err != nil {
				return out.Error(err)
			}

			if out.IsStructured() {
				if err := out.Success(v); err != nil {
					return err
				}
			} else if v.Valid {
				out.Done("%s %q is valid", field, value)
			} else {
				msg := v.Message
				if msg == "" {
					msg = "rejected by the server"
				}
				out.Printf("%s %q is not valid: %s\n", field, value, msg)
			}

			if !v.Valid {
				return &output.Reported{Err: fmt.Errorf("%s is not valid", field)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Id of the entity being edited (id or this)")
	return cmd
}

func newSearchCmd(e services.Entry) *cobra.Command {
	var (
		page      int
		size      int
		sortBy    string
		direction string
		active    string
		filters   []string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Paged, filtered listing of " + e.Name,
		Example: fmt.Sprintf("  tally %s search --size 50 --sort name --dir desc --filter name=acme", e.Name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			q := client.PagedQuery{
				Sort:      sortBy,
				Direction: direction,
			}
			if cmd.Flags().Changed("page") {
				q.Page = client.Int(page)
			}
			if cmd.Flags().Changed("size") {
				q.Size = client.Int(size)
			}
			status, err := parseActive(active)
			if err != nil {
				return out.Error(err)
			}
			q.Active = status

			if len(filters) > 0 {
				q.Filters = make(map[string]any, len(filters))
				for _, f := range filters {
					k, v, ok := strings.Cut(f, "=")
					if !ok || k == "" {
						return out.Error(fmt.Errorf("invalid --filter %q, expected key=value", f))
					}
					q.Filters[k] = v
				}
			}

			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}
			result, err := res.ListPaged(cmd.Context(), q)
			if err != nil {
				return out.Error(err)
			}
			return renderPage(out, e.Name, result)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Field to sort by")
	cmd.Flags().StringVar(&direction, "dir", "", "Sort direction: asc or desc")
	cmd.Flags().StringVar(&active, "active", "", "Only active (true) or inactive (false) entries")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Field filter key=value (repeatable)")
	return cmd
}

func newActionCmd(e services.Entry) *cobra.Command {
	return &cobra.Command{
		Use:   "action <name>",
		Short: "Trigger a server action on " + e.Name,
		Long:  fmt.Sprintf("Post an empty body to %s/<name>.", e.Path),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			res, err := records(e)
			if err != nil {
				return out.Error(err)
			}
			var result json.RawMessage
			if err := res.Action(cmd.Context(), args[0], &result); err != nil {
				return out.Error(err)
			}
			return renderActionResult(out, fmt.Sprintf("%s %s", e.Name, args[0]), result)
		},
	}
}

func renderActionResult(out *output.Printer, what string, result json.RawMessage) error {
	empty := len(result) == 0 || string(result) == "null"
	if out.IsStructured() {
		if empty {
			return out.Success(map[string]bool{"ok": true})
		}
		return out.Success(result)
	}
	if !empty {
		out.Println(string(result))
	}
	out.Done("%s done", what)
	return nil
}
