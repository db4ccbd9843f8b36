package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/schedule"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/streaks"
)

type rootOptions struct {
	file   string
	habit  string
	output string
	now    func() time.Time
}

func (o *rootOptions) load() ([]fileHabit, error) {
	habits, err := loadHabits(o.file)
	if err != nil {
		return nil, err
	}
	return selectHabits(habits, o.habit)
}

// dateFlag parses a YYYY-MM-DD flag value; empty means today.
func (o *rootOptions) dateFlag(name, raw string) (civil.Date, error) {
	if raw == "" {
		return civil.DateOf(o.now()), nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid --%s %q, expected YYYY-MM-DD", name, raw)
	}
	return d, nil
}

func (o *rootOptions) emit(w io.Writer, v any, text func(io.Writer) error) error {
	switch o.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		return text(w)
	}
	return fmt.Errorf("unknown output format %q (text or json)", o.output)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:           "kansoctl",
		Short:         "Evaluate habit schedules, streaks and calendars from a YAML file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "habits.yaml", "habit file")
	root.PersistentFlags().StringVar(&opts.habit, "habit", "", "only this habit id")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "text or json")

	root.AddCommand(newDueCmd(opts), newStreaksCmd(opts), newCalendarCmd(opts))
	return root
}

type dueRow struct {
	HabitID string       `json:"habit_id"`
	Date    *civil.Date  `json:"date,omitempty"`
	Due     *bool        `json:"due,omitempty"`
	Dates   []civil.Date `json:"dates,omitempty"`
}

func newDueCmd(opts *rootOptions) *cobra.Command {
	var dateRaw, fromRaw, toRaw string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "Whether each habit is due on a date, or its due dates in a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			habits, err := opts.load()
			if err != nil {
				return err
			}

			ranged := fromRaw != "" || toRaw != ""
			if ranged && (fromRaw == "" || toRaw == "") {
				return fmt.Errorf("--from and --to must be given together")
			}

			rows := make([]dueRow, 0, len(habits))
			if ranged {
				from, err := opts.dateFlag("from", fromRaw)
				if err != nil {
					return err
				}
				to, err := opts.dateFlag("to", toRaw)
				if err != nil {
					return err
				}
				if to.Before(from) {
					return fmt.Errorf("--from %s is after --to %s", from, to)
				}
				for _, h := range habits {
					rows = append(rows, dueRow{HabitID: h.ID, Dates: schedule.DueDates(h.Descriptor, from, to)})
				}
			} else {
				date, err := opts.dateFlag("date", dateRaw)
				if err != nil {
					return err
				}
				for _, h := range habits {
					due := h.IsScheduled(date)
					rows = append(rows, dueRow{HabitID: h.ID, Date: &date, Due: &due})
				}
			}

			return opts.emit(cmd.OutOrStdout(), rows, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, r := range rows {
					if r.Due != nil {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", r.HabitID, r.Date, yesNo(*r.Due))
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\n", r.HabitID, joinDates(r.Dates))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&dateRaw, "date", "", "YYYY-MM-DD, defaults to today")
	cmd.Flags().StringVar(&fromRaw, "from", "", "first day of a range")
	cmd.Flags().StringVar(&toRaw, "to", "", "last day of a range")
	return cmd
}

type streakRow struct {
	HabitID string         `json:"habit_id"`
	Policy  streaks.Policy `json:"policy"`
	AsOf    civil.Date     `json:"as_of"`
	streaks.Result
}

func newStreaksCmd(opts *rootOptions) *cobra.Command {
	var asOfRaw, policyRaw string

	cmd := &cobra.Command{
		Use:   "streaks",
		Short: "Current and longest streak of each habit",
		RunE: func(cmd *cobra.Command, args []string) error {
			habits, err := opts.load()
			if err != nil {
				return err
			}
			asOf, err := opts.dateFlag("as-of", asOfRaw)
			if err != nil {
				return err
			}

			var override streaks.Policy
			if policyRaw != "" {
				if override, err = streaks.ParsePolicy(policyRaw); err != nil {
					return err
				}
			}

			rows := make([]streakRow, 0, len(habits))
			for _, h := range habits {
				policy := h.policy()
				if override != "" {
					policy = override
				}
				res, err := streaks.Compute(h.Records, h.Descriptor, asOf, policy)
				if err != nil {
					return fmt.Errorf("habit %s: %w", h.ID, err)
				}
				rows = append(rows, streakRow{HabitID: h.ID, Policy: policy, AsOf: asOf, Result: res})
			}

			return opts.emit(cmd.OutOrStdout(), rows, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "HABIT\tPOLICY\tCURRENT\tLONGEST\tLAST")
				for _, r := range rows {
					last := "-"
					if r.LastCompleted != nil {
						last = r.LastCompleted.String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.HabitID, r.Policy, r.Current, r.Longest, last)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&asOfRaw, "as-of", "", "YYYY-MM-DD, defaults to today")
	cmd.Flags().StringVar(&policyRaw, "policy", "", "calendar_days or scheduled_days, overrides the file")
	return cmd
}

type calendarOut struct {
	HabitID string         `json:"habit_id"`
	Title   string         `json:"title"`
	Streak  streaks.Result `json:"streak"`
	Grid    streaks.Grid   `json:"grid"`
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	var monthRaw, asOfRaw string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Month grid of each habit with completions and the current streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			habits, err := opts.load()
			if err != nil {
				return err
			}
			asOf, err := opts.dateFlag("as-of", asOfRaw)
			if err != nil {
				return err
			}

			year, month := asOf.Year, asOf.Month
			if monthRaw != "" {
				t, err := time.Parse("2006-01", monthRaw)
				if err != nil {
					return fmt.Errorf("invalid --month %q, expected YYYY-MM", monthRaw)
				}
				year, month = t.Year(), t.Month()
			}

			out := make([]calendarOut, 0, len(habits))
			for _, h := range habits {
				res, err := streaks.Compute(h.Records, h.Descriptor, asOf, h.policy())
				if err != nil {
					return fmt.Errorf("habit %s: %w", h.ID, err)
				}
				out = append(out, calendarOut{
					HabitID: h.ID,
					Title:   h.label(),
					Streak:  res,
					Grid:    streaks.BuildCalendarGrid(year, month, h.Records, h.Descriptor, asOf, res.Current),
				})
			}

			return opts.emit(cmd.OutOrStdout(), out, func(w io.Writer) error {
				for i, c := range out {
					if i > 0 {
						fmt.Fprintln(w)
					}
					renderCalendar(w, c)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&monthRaw, "month", "", "YYYY-MM, defaults to the month of --as-of")
	cmd.Flags().StringVar(&asOfRaw, "as-of", "", "YYYY-MM-DD, defaults to today")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "due"
	}
	return "not due"
}

func joinDates(dates []civil.Date) string {
	if len(dates) == 0 {
		return "-"
	}
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}
