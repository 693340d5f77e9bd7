package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewEndCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "end <item-id>",
		Short: "End the meeting of a content item and forget its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := deps.openApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()
			item, err := loadItem(ctx, application, args[0])
			if err != nil {
				return err
			}

			f := NewFormatter(cmd.OutOrStdout())
			result, err := application.Meetings().Terminate(ctx, *item)
			if err != nil {
				if result == nil {
					return fmt.Errorf("failed to end meeting of %s: %w", item.ID, err)
				}
				// The record is gone; only the remote end failed
				f.Warning(err.Error())
			}
			f.Terminated(result)
			return nil
		},
	}
}
