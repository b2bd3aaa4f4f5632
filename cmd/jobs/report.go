package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
)

// report prints one line per affected row followed by a summary line.
func report(w io.Writer, name string, result any) {
	prefix := name
	switch r := result.(type) {
	case *services.ExpireResult:
		if r.DryRun {
			prefix += " (dry-run)"
		}
		for _, id := range r.IDs {
			fmt.Fprintf(w, "booking %d: cancelled, payment window expired\n", id)
		}
		fmt.Fprintf(w, "%s: checked %d, expired %d, failed %d\n", prefix, r.Checked, r.Expired, r.Failed)

	case *services.GenerateResult:
		if r.DryRun {
			prefix += " (dry-run)"
		}
		fmt.Fprintf(w, "%s: period %s to %s, leases %d, created %d, updated %d, skipped %d, failed %d\n",
			prefix, r.PeriodStart, r.PeriodEnd, r.Leases, r.Created, r.Updated, r.Skipped, r.Failed)

	case *services.LateFeeResult:
		if r.DryRun {
			prefix += " (dry-run)"
		}
		for _, id := range r.IDs {
			fmt.Fprintf(w, "invoice %d: late fee applied\n", id)
		}
		fmt.Fprintf(w, "%s: checked %d, applied %d, skipped %d, failed %d\n", prefix, r.Checked, r.Applied, r.Skipped, r.Failed)

	case *services.ReminderRunResult:
		if r.DryRun {
			prefix += " (dry-run)"
		}
		for _, p := range r.Reminders {
			line := fmt.Sprintf("%s: %s %s to %s (%+d days) %s", p.Reference, p.Channel, p.Category, p.Recipient, p.DaysUntilDue, p.Status)
			if p.Escalation {
				line += " [escalation]"
			}
			if p.Error != "" {
				line += ": " + p.Error
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "%s: properties %d (skipped %d), bookings %d, sent %d, failed %d, skipped %d, escalated %d\n",
			prefix, r.Properties, r.PropertiesSkipped, r.Bookings, r.Sent, r.Failed, r.Skipped, r.Escalated)

	case *services.RoomSyncResult:
		if r.DryRun {
			prefix += " (dry-run)"
		}
		for _, room := range r.Rooms {
			fmt.Fprintln(w, room)
		}
		fmt.Fprintf(w, "%s: properties %d, rooms checked %d, changed %d\n", prefix, r.Properties, r.Checked, r.Changed)

	case *services.TemplateSeedResult:
		if r.DryRun {
			prefix += " (dry-run)"
		}
		fmt.Fprintf(w, "%s: created %d templates\n", prefix, r.Created)

	default:
		out, _ := json.Marshal(result)
		fmt.Fprintf(w, "%s: %s\n", prefix, out)
	}
}
