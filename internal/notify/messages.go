package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// NotifyEvent formats a tracker event and dispatches it through the
// configured senders, subject to the event-type filter.
func (n *Notifier) NotifyEvent(ctx context.Context, ev domain.TrackerEvent) error {
	title, message, ok := FormatEvent(ev)
	if !ok {
		return nil
	}
	return n.Notify(ctx, string(ev.Kind), title, message)
}

// FormatEvent renders a tracker event as a notification title and body.
// ok is false for events that have no notification form, such as unchanged
// snapshots.
func FormatEvent(ev domain.TrackerEvent) (title, message string, ok bool) {
	switch ev.Kind {
	case domain.EventSnapshotUpdate:
		if ev.Changes == nil || !ev.Changes.Changed {
			return "", "", false
		}
		return "Position changes detected", formatChanges(ev), true

	case domain.EventTickError:
		return "Tracker tick failed", fmt.Sprintf("Account %s\n%s", shortAddr(ev.Address), ev.Err), true

	case domain.EventTradeExecuted:
		return "Copy trade executed", formatTrade(ev), true

	case domain.EventTradeError:
		return "Copy trade failed", formatTrade(ev) + "\nError: " + ev.Err, true
	}
	return "", "", false
}

func formatChanges(ev domain.TrackerEvent) string {
	cs := ev.Changes

	var b strings.Builder
	fmt.Fprintf(&b, "Account %s\n", shortAddr(ev.Address))
	fmt.Fprintf(&b, "Added %d, updated %d, removed %d\n", len(cs.Added), len(cs.Updated), len(cs.Removed))

	for _, p := range cs.Added {
		fmt.Fprintf(&b, "+ %s (%s) qty %.2f @ %.3f\n", trim(p.Market.Question, 60), p.Outcome, p.Quantity, p.Price)
	}
	for _, qc := range cs.Updated {
		fmt.Fprintf(&b, "~ %s qty %.2f -> %.2f\n", trim(qc.Position.Market.Question, 60), qc.OldQuantity, qc.NewQuantity)
	}
	for _, p := range cs.Removed {
		fmt.Fprintf(&b, "- %s (%s)\n", trim(p.Market.Question, 60), p.Outcome)
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatTrade(ev domain.TrackerEvent) string {
	res := ev.Result
	if res == nil {
		return "Account " + shortAddr(ev.Address)
	}

	mode := "live"
	if res.DryRun {
		mode = "dry-run"
	}

	return fmt.Sprintf("%s %s qty %.2f @ %.3f (%s)\n%s",
		strings.ToUpper(string(res.Kind)), res.Kind.OrderSide(),
		res.Quantity, res.Price, mode, trim(res.Position.Market.Question, 60))
}

// shortAddr abbreviates an Ethereum address for display.
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + ".." + addr[len(addr)-4:]
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-2] + ".."
}
