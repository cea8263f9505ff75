package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/debounce"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/ramarlina/tally-cli/pkg/services"
	"github.com/spf13/cobra"
)

// searchDelay is how long typing has to pause before an interactive search
// is sent.
const searchDelay = 300 * time.Millisecond

// addUserCommands replaces the generic search of users with a name search.
func addUserCommands(users *cobra.Command) {
	for _, c := range users.Commands() {
		if c.Name() == "search" {
			users.RemoveCommand(c)
		}
	}
	users.AddCommand(newUserSearchCmd())
}

func newUserSearchCmd() *cobra.Command {
	var (
		f           services.UserFilter
		active      string
		page        int
		size        int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search users by name",
		Long: `Search users by first and last name.

With -i, every line read from stdin is a new query ("first [last]"). Queries
are sent once typing pauses and only the newest answer is printed, so a slow
answer to an old query never overwrites a newer one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := getOutputPrinter()

			status, err := parseActive(active)
			if err != nil {
				return out.Error(err)
			}
			f.Active = status
			if cmd.Flags().Changed("page") {
				f.Page = client.Int(page)
			}
			if cmd.Flags().Changed("size") {
				f.Size = client.Int(size)
			}

			svc, _, err := getServices()
			if err != nil {
				return out.Error(err)
			}

			if interactive {
				return searchInteractive(cmd.Context(), out, svc.Users, f, os.Stdin)
			}

			result, err := svc.Users.Search(cmd.Context(), f)
			if err != nil {
				return out.Error(err)
			}
			return renderUserPage(out, result)
		},
	}
	cmd.Flags().StringVar(&f.FirstName, "first", "", "First name contains")
	cmd.Flags().StringVar(&f.LastName, "last", "", "Last name contains")
	cmd.Flags().StringVar(&active, "active", "", "Only active (true) or inactive (false) users")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().StringVar(&f.Sort, "sort", "", "Field to sort by, e.g. lastName")
	cmd.Flags().StringVar(&f.Direction, "dir", "", "Sort direction: asc or desc")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read queries from stdin, one per line")
	return cmd
}

type userSearcher interface {
	Search(ctx context.Context, f services.UserFilter) (*api.Page[models.User], error)
}

// searchInteractive runs a debounced search per input line and prints only
// answers that are still the newest when they arrive.
func searchInteractive(ctx context.Context, out *output.Printer, users userSearcher, base services.UserFilter, in io.Reader) error {
	var (
		latest  debounce.Latest
		wg      sync.WaitGroup
		printMu sync.Mutex

		// mu guards closed and sent
		mu     sync.Mutex
		closed bool
		sent   int
	)
	d := debounce.New(searchDelay)

	// start must be called with mu held.
	start := func(seq int, f services.UserFilter) {
		sent = seq
		tok := latest.Next()
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := users.Search(ctx, f)

			printMu.Lock()
			defer printMu.Unlock()
			if !latest.Current(tok) {
				log.Debugw("dropping stale search result", "first", f.FirstName, "last", f.LastName)
				return
			}
			if err != nil {
				out.Error(err) //nolint:errcheck
				return
			}
			renderUserPage(out, result) //nolint:errcheck
		}()
	}

	var (
		seq  int
		last services.UserFilter
	)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		f := base
		f.FirstName, f.LastName = splitName(scanner.Text())
		seq++
		last = f

		n := seq
		d.Trigger(func() {
			mu.Lock()
			defer mu.Unlock()
			if !closed {
				start(n, f)
			}
		})
	}

	// Input ended: send the final query now unless it already went out.
	d.Cancel()
	mu.Lock()
	closed = true
	if seq > 0 && sent != seq {
		start(seq, last)
	}
	mu.Unlock()

	wg.Wait()
	return scanner.Err()
}

func splitName(line string) (first, last string) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func renderUserPage(out *output.Printer, page *api.Page[models.User]) error {
	if out.IsStructured() {
		return out.Success(page)
	}
	if len(page.Content) == 0 {
		if !out.IsQuiet() {
			out.Println("No users found")
		}
		return nil
	}
	if out.IsRaw() {
		for _, u := range page.Content {
			out.Printf("%d\n", u.ID)
		}
		return nil
	}

	if !out.IsQuiet() {
		out.Printf("Page %d of %d (%d users in total)\n\n",
			page.CurrentPage+1, max(page.TotalPages, 1), page.TotalElements)
	}
	rows := make([][]string, 0, len(page.Content))
	for _, u := range page.Content {
		status := "inactive"
		if u.Active {
			status = "active"
		}
		rows = append(rows, []string{
			formatID(u.ID), u.Username, u.FullName(), u.Email, status,
		})
	}
	return out.Table([]string{"id", "username", "name", "email", "status"}, rows)
}
