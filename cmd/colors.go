package cmd

import (
	"github.com/fatih/color"
	"github.com/khanhnv2901/linkguard/internal/domain/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorDanger  = color.New(color.FgRed, color.Bold).SprintFunc()
)

func formatVerdictWithColor(v scan.Verdict) string {
	label := v.Label()
	switch v {
	case scan.VerdictSafe:
		return colorSuccess(label)
	case scan.VerdictInformational:
		return colorInfo(label)
	case scan.VerdictSuspicious:
		return colorWarn(label)
	case scan.VerdictHighRisk:
		return colorError(label)
	case scan.VerdictMalicious:
		return colorDanger(label)
	default:
		return label
	}
}
