package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sac-service/internal/aggregate"
	"github.com/spec-kit/sac-service/internal/app"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/sla"
)

const cliActor = "sacctl"

func newSeedCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled mock data into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seeded, err := c.Seed(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"seeded": seeded})
		},
	}
}

type inboxRow struct {
	ID        string            `json:"id"`
	Status    domain.CaseStatus `json:"status"`
	Priority  sla.Priority      `json:"priority"`
	DaysOpen  int               `json:"days_open"`
	Expired   bool              `json:"sla_expired"`
	Client    string            `json:"client"`
	Subject   string            `json:"subject"`
	Agent     string            `json:"agent"`
	CreatedAt string            `json:"created_at"`
}

func newInboxCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Search, Status, Quick, Sort, Dir string
	}
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List cases the way the inbox shows them",
		Long: `List cases with the inbox search, filters and sort order.

Examples:
  sacctl inbox
  sacctl inbox --quick overdue
  sacctl inbox --q garcia --sort client --dir asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := aggregate.ParseInboxQuery(opts.Search, opts.Status, opts.Quick, opts.Sort, opts.Dir)
			if err != nil {
				return err
			}
			result, err := c.Dashboard.Inbox(cmd.Context(), query)
			if err != nil {
				return err
			}
			rows := make([]inboxRow, 0, len(result.Items))
			for _, item := range result.Items {
				rows = append(rows, inboxRow{
					ID:        item.Case.ID,
					Status:    item.Case.Status,
					Priority:  item.Classification.Priority,
					DaysOpen:  item.Classification.DaysOpen,
					Expired:   item.Classification.SLAExpired,
					Client:    item.Case.ClientName,
					Subject:   item.Case.Subject,
					Agent:     item.Case.DisplayAgentName(),
					CreatedAt: item.Case.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&opts.Search, "q", "", "search id, client or subject")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.Quick, "quick", "", "quick filter: all, escalated, overdue, new")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort key: priority, status, client, created, agent")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "sort direction: asc or desc")
	return cmd
}

func newAlertsCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Show expired, escalated and near-breach cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.Dashboard.Alerts(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newStatusCommand(c *app.Container) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "status <case-id> <status>",
		Short: "Move a case to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := c.Cases.PatchStatus(cmd.Context(), cliActor, args[0], domain.CaseStatus(args[1]), note)
			if err != nil {
				return err
			}
			c.Syncer.Wait()
			return writeJSON(cmd.OutOrStdout(), updated)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "history note")
	return cmd
}

func newDashboardCommand(c *app.Container) *cobra.Command {
	var period, view string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the supervisor or manager dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := aggregate.ParsePeriod(period)
			if err != nil {
				return err
			}
			switch view {
			case "supervisor":
				out, err := c.Dashboard.Supervisor(cmd.Context(), p)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			case "manager":
				out, err := c.Dashboard.Manager(cmd.Context(), p)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			default:
				return fmt.Errorf("unknown view %q (supervisor or manager)", view)
			}
		},
	}
	cmd.Flags().StringVar(&period, "period", "today", "today, week or month")
	cmd.Flags().StringVar(&view, "view", "supervisor", "supervisor or manager")
	return cmd
}
