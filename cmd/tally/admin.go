package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ramarlina/tally-cli/pkg/format"
	"github.com/spf13/cobra"
)

func addSpecialDayCommands(sd *cobra.Command) {
	sd.AddCommand(specialDayUploadCmd)
}

func addFollowUpCommands(fu *cobra.Command) {
	fu.AddCommand(followUpDispatchCmd)
}

func addSystemCommands(sys *cobra.Command) {
	sys.AddCommand(systemVoteCmd)
	sys.AddCommand(systemTruncateCmd)
}

var specialDayUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Import holidays and special days from a file",
	Long: `Upload a file of special days, one per line as "date;name[;hours]".
Lines starting with # are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		f, err := os.Open(args[0])
		if err != nil {
			return out.Error(err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return out.Error(err)
		}

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		name := filepath.Base(args[0])
		if err := svc.SpecialDays.UploadFile(cmd.Context(), name, f); err != nil {
			return out.Error(err)
		}

		if out.IsStructured() {
			return out.Success(map[string]any{"file": name, "size": info.Size()})
		}
		out.Done("Uploaded %s (%s)", name, format.Bytes(uint64(info.Size())))
		return nil
	},
}

var followUpDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Mail the follow-up report to every user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		if err := svc.FollowUp.DispatchEmails(cmd.Context()); err != nil {
			return out.Error(err)
		}

		if out.IsStructured() {
			return out.Success(map[string]bool{"dispatched": true})
		}
		out.Done("Follow-up emails dispatched")
		return nil
	},
}

var systemVoteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Register your vote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		if err := svc.System.Vote(cmd.Context()); err != nil {
			return out.Error(err)
		}

		if out.IsStructured() {
			return out.Success(map[string]bool{"voted": true})
		}
		out.Done("Vote registered")
		return nil
	},
}

var systemTruncateCmd = &cobra.Command{
	Use:   "truncate",
	Short: "Clear all test data on the backend",
	Long:  "Clear all test data on the backend. Asks for confirmation unless --yes is given.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		ctx := cmd.Context()

		ok, err := getConfirmer().Confirm(ctx, fmt.Sprintf("Truncate all data on %s?", apiURL()))
		if err != nil {
			return out.Error(err)
		}
		if !ok {
			if out.IsStructured() {
				return out.Success(map[string]bool{"truncated": false})
			}
			out.Println("Cancelled")
			return nil
		}

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		if err := svc.System.Truncate(ctx); err != nil {
			return out.Error(err)
		}

		if out.IsStructured() {
			return out.Success(map[string]bool{"truncated": true})
		}
		out.Done("Data truncated")
		return nil
	},
}
