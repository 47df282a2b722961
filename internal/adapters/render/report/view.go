package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/exposure-detect/internal/application"
	"github.com/bnema/exposure-detect/internal/domain"
)

const defaultBarWidth = 24

type RenderOptions struct {
	Now      time.Time
	BarWidth int
}

func renderView(report application.DetectionReport, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Exposure Check"),
		s.header.Render(fmt.Sprintf("keys checked: %d in %s", report.KeysChecked, plural(report.Batches, "batch", "batches"))),
	}
	if !report.FinishedAt.IsZero() {
		lines = append(lines, s.header.Render("checked "+formatChecked(report.FinishedAt, opts.Now)))
	}

	if !report.Summary.Exposed() {
		lines = append(lines, s.section.Render(s.clear.Render("No exposure detected.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(s.exposed.Render(
		fmt.Sprintf("Exposure detected: %s", plural(report.Summary.MatchedKeyCount, "matching key", "matching keys")),
	)))

	if len(report.Contacts) == 0 {
		lines = append(lines, s.empty.Render("No contact details available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	longest := longestContact(report.Contacts)
	contacts := make([]string, 0, len(report.Contacts))
	for _, contact := range report.Contacts {
		contacts = append(contacts, contactLine(contact, longest, opts, s))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, contacts...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func contactLine(contact domain.ContactInfo, longest time.Duration, opts RenderOptions, s styles) string {
	width := opts.BarWidth
	if width <= 0 {
		width = defaultBarWidth
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.day.Render(fmt.Sprintf("%-12s", formatDay(contact.Timestamp, opts.Now))),
		" ",
		renderBar(float64(contact.Duration)/float64(longest), width, s),
		" ",
		s.duration.Render(formatDuration(contact.Duration)),
	)
}

func renderBar(fraction float64, width int, s styles) string {
	filled := int(math.Round(float64(width) * min(max(fraction, 0), 1)))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.bracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.bracket.Render("]"),
	)
}

func longestContact(contacts []domain.ContactInfo) time.Duration {
	longest := domain.ContactQuantum
	for _, c := range contacts {
		longest = max(longest, c.Duration)
	}
	return longest
}

func formatDay(day, now time.Time) string {
	if now.IsZero() {
		return day.Format(time.DateOnly)
	}

	switch ago := domain.DayOf(now) - domain.DayOf(day); {
	case ago == 0:
		return "today"
	case ago == 1:
		return "yesterday"
	case ago > 1 && ago < 15:
		return fmt.Sprintf("%d days ago", ago)
	default:
		return day.Format(time.DateOnly)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if minutes == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, minutes)
}

func formatChecked(at, now time.Time) string {
	if now.IsZero() || at.After(now) {
		return "at " + at.UTC().Format(time.RFC3339)
	}
	if domain.DayOf(at) == domain.DayOf(now) {
		return "at " + at.UTC().Format("15:04")
	}
	return "at " + at.UTC().Format("15:04 on 02 Jan")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
