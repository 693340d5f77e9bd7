package cli

import (
	"fmt"
	"io"

	"meetingbridge/pkg/types"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Check(name string, ok bool, detail string) {
	mark := "ok  "
	if !ok {
		mark = "FAIL"
	}
	fmt.Fprintf(f.w, "[%s] %-22s %s\n", mark, name, detail)
}

func (f *Formatter) Status(item *types.ContentItem, report *types.StatusReport) {
	fmt.Fprintf(f.w, "Item:      %s (%s) %s\n", item.ID, item.Type, item.Title)
	fmt.Fprintf(f.w, "State:     %s\n", report.State)
	fmt.Fprintf(f.w, "Running:   %t\n", report.Running)
	if report.ForciblyEnded {
		fmt.Fprintf(f.w, "Ended:     forcibly ended on the server\n")
	}
	if info := report.Info; info != nil {
		fmt.Fprintf(f.w, "Meeting:   %s\n", info.MeetingID)
		fmt.Fprintf(f.w, "People:    %d (%d moderators)\n", info.ParticipantCount, info.ModeratorCount)
		if info.Recording {
			fmt.Fprintf(f.w, "Recording: yes\n")
		}
	}
}

func (f *Formatter) Terminated(result *types.TerminateResult) {
	switch {
	case !result.Existed:
		fmt.Fprintf(f.w, "No meeting stored for %s\n", result.ItemID)
	case result.RemoteEnded:
		fmt.Fprintf(f.w, "Ended meeting of %s\n", result.ItemID)
	default:
		fmt.Fprintf(f.w, "Removed meeting record of %s; the server no longer knew the meeting\n", result.ItemID)
	}
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "%s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "WARNING: %s\n", msg)
}
