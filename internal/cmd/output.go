package cmd

import (
	"github.com/fatih/color"

	"rsswatch/domain"
	"rsswatch/internal/health"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func statusColor(status domain.HealthStatus) *color.Color {
	switch status {
	case domain.HealthActive:
		return green
	case domain.HealthWarning:
		return yellow
	case domain.HealthError:
		return red
	default:
		return faint
	}
}

// statusLabel is the short colored status name.
func statusLabel(status domain.HealthStatus) string {
	return statusColor(status).Sprint(health.Text(status))
}

// statusText is the long colored status description.
func statusText(status domain.HealthStatus) string {
	return statusColor(status).Sprint(health.Label(status))
}

func okMark() string   { return green.Sprint("✓") }
func failMark() string { return red.Sprint("✗") }
