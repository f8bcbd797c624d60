package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/timetrack/internal/core/events"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Replay domain events through the in-process event bus.`,
}

var publishMembershipCmd = &cobra.Command{
	Use:   "publish-membership [member-id]",
	Short: "Replay a membership change",
	Long:  `Publish a membership.changed event for an existing membership so its subscribers (hierarchy sync and description refresh) run again.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		memberID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || memberID <= 0 {
			return fmt.Errorf("invalid member id %q", args[0])
		}
		return publishMembershipChange(cmd.Context(), memberID, events.MembershipChange(eventChange))
	},
}

var eventChange string

func publishMembershipChange(ctx context.Context, memberID int64, change events.MembershipChange) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch change {
	case events.MembershipCreated, events.MembershipRoleAdded, events.MembershipRoleRemoved, events.MembershipDestroyed:
	default:
		return fmt.Errorf("unknown change %q", change)
	}

	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		return err
	}
	defer deps.Close()

	m, err := deps.Members.GetByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("load membership %d: %w", memberID, err)
	}

	event := events.NewMembershipChangedEvent(m.ID, m.ProjectID, m.UserID, change, 0)
	deps.Logger.Info("publishing membership event",
		"event_id", event.EventID(),
		"member_id", m.ID,
		"project_id", m.ProjectID,
		"change", change)

	if err := deps.Bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	deps.Logger.Info("membership event handled", "event_id", event.EventID())
	return nil
}

func init() {
	publishMembershipCmd.Flags().StringVar(&eventChange, "change", string(events.MembershipRoleAdded), "membership change to replay (created, role_added, role_removed, destroyed)")

	eventCmd.AddCommand(publishMembershipCmd)

	rootCmd.AddCommand(eventCmd)
}
