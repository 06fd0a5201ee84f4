package main

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/duration"
	"complaintdesk/backend/internal/export"
	"complaintdesk/backend/internal/filter"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// app holds what the commands need once connected.
type app struct {
	store  *storage.Service
	secret []byte
	loc    duration.Translator
	lang   string
	now    func() time.Time
}

func newRootCmd(open func() (*app, error)) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator tooling for the complaint desk",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open()
			return err
		},
	}

	// Команди отримують app через замикання після PersistentPreRunE.
	get := func() *app { return a }

	root.AddCommand(
		newTokenCmd(get),
		newTransitionCmd(get),
		newRemindCmd(get),
		newListCmd(get),
		newExportCmd(get),
		newPurgeCmd(get),
		newSeedTypesCmd(get),
	)
	return root
}

type agentFlags struct {
	id   string
	name string
}

func (f *agentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "agent-id", "", "acting agent id")
	cmd.Flags().StringVar(&f.name, "agent-name", "", "acting agent display name")
	_ = cmd.MarkFlagRequired("agent-id")
	_ = cmd.MarkFlagRequired("agent-name")
}

func (f *agentFlags) agent() models.Agent {
	return models.Agent{ID: f.id, DisplayName: f.name}
}

func newTokenCmd(get func() *app) *cobra.Command {
	var (
		agent agentFlags
		ttl   time.Duration
		role  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Register an agent and print a signed API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ag := agent.agent()
			ag.Role = role
			if err := a.store.SaveAgent(cmd.Context(), &ag); err != nil {
				return fmt.Errorf("save agent: %w", err)
			}
			tok, err := handler.GenerateJWT(a.secret, ag.ID, ag.DisplayName, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	agent.register(cmd)
	cmd.Flags().DurationVar(&ttl, "ttl", 72*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&role, "role", "agent", "agent role")
	return cmd
}

func newTransitionCmd(get func() *app) *cobra.Command {
	var (
		agent  agentFlags
		reason string
	)
	cmd := &cobra.Command{
		Use:   "transition <complaint_id> <status>",
		Short: "Move a complaint to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			sm := complaint.NewStateMachine(a.store)
			sm.Now = a.now
			actor := agent.agent()
			if err := sm.Transition(cmd.Context(), args[0], models.Status(args[1]), reason, &actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Complaint %s moved to %s.\n", args[0], args[1])
			return nil
		},
	}
	agent.register(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "reason (required for Suspended and Resolved)")
	return cmd
}

func newRemindCmd(get func() *app) *cobra.Command {
	var agent agentFlags
	cmd := &cobra.Command{
		Use:   "remind <complaint_id>",
		Short: "Record a customer reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			rt := complaint.NewReminderTracker(a.store)
			rt.Now = a.now
			if err := rt.Increment(cmd.Context(), args[0], agent.agent()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder recorded for complaint %s.\n", args[0])
			return nil
		},
	}
	agent.register(cmd)
	return cmd
}

type filterFlags struct {
	search, status, date string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "customer name, number or id substring")
	cmd.Flags().StringVar(&f.status, "status", "", "All, a status, HighPriority or MediumPriority")
	cmd.Flags().StringVar(&f.date, "date", "", "creation day (YYYY-MM-DD, UTC)")
}

func (f *filterFlags) apply(cmd *cobra.Command, a *app) ([]models.Complaint, error) {
	criteria, err := filter.ParseCriteria(f.search, f.status, f.date)
	if err != nil {
		return nil, err
	}
	all, err := a.store.FetchAllComplaints(cmd.Context())
	if err != nil {
		return nil, err
	}
	return filter.Filter(all, criteria), nil
}

func newListCmd(get func() *app) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			visible, err := f.apply(cmd, a)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCUSTOMER\tTYPE\tSTATUS\tPRIORITY\tREMINDERS\tDURATION")
			for i := range visible {
				c := &visible[i]
				created := c.CreatedAt
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					c.ID, c.CustomerName, c.TypeName(),
					export.StatusLabel(a.loc, a.lang, c.Status),
					analysis.PriorityTier(c.ReminderCount),
					c.ReminderCount,
					duration.Format(a.loc, a.lang, &created, c.ResolvedAt),
				)
			}
			return w.Flush()
		},
	}
	f.register(cmd)
	return cmd
}

func newExportCmd(get func() *app) *cobra.Command {
	var (
		f   filterFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered complaints as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			visible, err := f.apply(cmd, a)
			if err != nil {
				return err
			}
			table := export.Project(visible, a.loc, a.lang, a.now())

			if out == "" {
				return export.WriteCSV(cmd.OutOrStdout(), table)
			}
			if out == "." {
				out = table.Name + ".csv"
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			defer file.Close()
			if err := export.WriteCSV(file, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d complaints to %s.\n", len(table.Rows), out)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("." for the default name, empty for stdout)`)
	return cmd
}

func newPurgeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <complaint_id>",
		Short: "Delete a complaint permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := get().store.DeleteComplaint(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Complaint %s has been deleted.\n", args[0])
			return nil
		},
	}
}

func newSeedTypesCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-types <file.yaml>",
		Short: "Create or update complaint types from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			types, err := parseTypes(data)
			if err != nil {
				return err
			}
			a := get()
			for i := range types {
				if err := a.store.SaveComplaintType(cmd.Context(), &types[i]); err != nil {
					return fmt.Errorf("save type %s: %w", types[i].ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d complaint types.\n", len(types))
			return nil
		},
	}
}

// parseTypes decodes a YAML list of complaint types. Field definitions are
// validated while decoding; a missing id is generated on save.
func parseTypes(data []byte) ([]models.ComplaintType, error) {
	var types []models.ComplaintType
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("parse complaint types: %w", err)
	}
	for i, t := range types {
		if t.Name == "" {
			return nil, fmt.Errorf("parse complaint types: entry %d has no name", i)
		}
	}
	return types, nil
}
