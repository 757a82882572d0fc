package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/logiqbot/keypool/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(credentials []domain.Credential, opts RenderOptions, s styles) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	lines := []string{
		s.title.Render("AI Key Pool"),
		s.header.Render(fmt.Sprintf("keys: %d", len(credentials))),
	}

	if len(credentials) == 0 {
		lines = append(lines, s.empty.Render("No keys configured. Add one with `keypool keys add`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, cred := range credentials {
		lines = append(lines, s.section.Render(renderCredential(cred, now, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCredential(cred domain.Credential, now time.Time, s styles) string {
	parts := []string{
		renderTitle(cred, now, s),
		windowLine("rpm", cred.MinuteWindowStart, cred.MinuteWindowCount, cred.RPMLimit, domain.MinuteWindow, now, s),
		windowLine("rpd", cred.DayWindowStart, cred.DayWindowCount, cred.RPDLimit, domain.DayWindow, now, s),
	}

	if cred.LastError != "" {
		parts = append(parts, s.warning.Render(fmt.Sprintf("last error: %d %s", cred.LastErrorCode, cred.LastError)))
	}
	if cred.Notes != "" {
		parts = append(parts, s.detail.Render("notes: "+cred.Notes))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderTitle(cred domain.Credential, now time.Time, s styles) string {
	title := fmt.Sprintf("%s (%s)", cred.Name, cred.Fingerprint)

	switch {
	case !cred.Enabled:
		return s.disabled.Render(title + " [disabled]")
	case cred.CooldownUntil.After(now):
		remaining := int(math.Ceil(cred.CooldownUntil.Sub(now).Seconds()))
		return lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.key.Render(title),
			" ",
			s.warning.Render(fmt.Sprintf("[cooldown %ds]", remaining)),
		)
	default:
		return s.key.Render(title)
	}
}

func windowLine(label string, start time.Time, count, limit int, window time.Duration, now time.Time, s styles) string {
	_, used := domain.AdvanceWindow(start, count, window, now)
	if limit < 1 {
		limit = 1
	}
	usedPercent := float64(used) / float64(limit) * 100

	bar := renderProgressBar(usedPercent, 24, s)
	key := s.limitKey.Render(label + ":")
	meta := s.limitMeta.Render(fmt.Sprintf("%d/%d", used, limit))

	return lipgloss.JoinHorizontal(lipgloss.Top, key, " ", bar, " ", meta)
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	leftFraction := (100.0 - used) / 100.0
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
