package main

import (
	"time"

	"github.com/ramarlina/tally-cli/pkg/board"
	"github.com/ramarlina/tally-cli/pkg/format"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/spf13/cobra"
)

func addTimeReportCommands(tr *cobra.Command) {
	tr.AddCommand(newReportToggleCmd(true))
	tr.AddCommand(newReportToggleCmd(false))
	tr.AddCommand(reportStatusCmd)
	tr.AddCommand(reportRemindCmd)
}

func newReportToggleCmd(closing bool) *cobra.Command {
	var userID, date string

	cmd := &cobra.Command{
		Use:   "close --user <id> [--date YYYY-MM-DD]",
		Short: "Close a user's time report up to a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()
			ctx := cmd.Context()

			if date != "" {
				if _, err := format.ParseDate(date); err != nil {
					return out.Error(err)
				}
			} else if closing {
				date = format.Date(time.Now())
			}

			svc, _, err := getServices()
			if err != nil {
				return out.Error(err)
			}

			b := board.New(svc.TimeReportStatus)
			if err := b.Load(ctx, svc.TimeReportStatus); err != nil {
				log.Warnw("could not load time report statuses", "err", err)
			}

			if closing {
				err = b.Close(ctx, userID, date)
			} else {
				err = b.Open(ctx, userID, date)
			}
			if err != nil {
				return out.Error(err)
			}

			row, _ := b.Row(userID)
			return renderStatusRow(out, row)
		},
	}
	if !closing {
		cmd.Use = "open --user <id> [--date YYYY-MM-DD]"
		cmd.Short = "Reopen a user's time report"
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&date, "date", "", "Close date, YYYY-MM-DD (close defaults to today)")
	cmd.MarkFlagRequired("user") //nolint:errcheck
	return cmd
}

func renderStatusRow(out *output.Printer, row board.Row) error {
	if out.IsStructured() {
		return out.Success(row)
	}
	name := row.Name
	if name == "" {
		name = "user " + row.UserID
	}
	if row.Closed {
		out.Done("Time report of %s closed up to %s", name, row.CloseDate)
	} else {
		out.Done("Time report of %s is open", name)
	}
	return nil
}

var reportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which time reports are open or closed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		b := board.New(svc.TimeReportStatus)
		if err := b.Load(cmd.Context(), svc.TimeReportStatus); err != nil {
			return out.Error(err)
		}

		rows := b.Rows()
		if out.IsStructured() {
			return out.Success(rows)
		}
		if len(rows) == 0 {
			out.Println("No time report statuses found")
			return nil
		}

		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			state := "open"
			if r.Closed {
				state = "closed"
			}
			closeDate := r.CloseDate
			if closeDate == "" {
				closeDate = "-"
			}
			table = append(table, []string{r.UserID, r.Name, state, closeDate})
		}
		return out.Table([]string{"user", "name", "state", "closed up to"}, table)
	},
}

var reportRemindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Remind users with missing time entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		if err := svc.TimeReports.SendReminder(cmd.Context()); err != nil {
			return out.Error(err)
		}

		if out.IsStructured() {
			return out.Success(map[string]bool{"reminded": true})
		}
		out.Done("Reminders sent")
		return nil
	},
}
