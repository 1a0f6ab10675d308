package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/depview/pkg/surface"
)

// out receives all status output; tests swap it for a buffer.
var out io.Writer = os.Stdout

// Terminal palette (ANSI 256). Connector colors match the viewer.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")

	colorDep    = lipgloss.Color(surface.ColorDep)
	colorNewDep = lipgloss.Color(surface.ColorNewDep)
	colorCopy   = lipgloss.Color(surface.ColorCopy)
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// Styles shared by commands and the editor.
var (
	StyleTitle   = fg(colorCyan).Bold(true)
	StyleDim     = fg(colorDim)
	StyleValue   = fg(colorWhite)
	StyleSuccess = fg(colorGreen)
	StyleWarning = fg(colorYellow)
	StyleError   = fg(colorRed)

	styleIconSuccess = fg(colorGreen)
	styleIconError   = fg(colorRed)
	styleIconWarning = fg(colorYellow)
	styleIconInfo    = fg(colorGray)
	styleIconSpinner = fg(colorCyan)
	styleKey         = fg(colorGray).Width(12)

	styleCached   = fg(colorGreen)
	styleComputed = fg(colorGray)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// status prints one icon-prefixed line.
func status(icon string, iconStyle lipgloss.Style, text string) {
	fmt.Fprintln(out, iconStyle.Render(icon)+" "+text)
}

func printSuccess(format string, args ...any) {
	status(iconSuccess, styleIconSuccess, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	status(iconError, styleIconError, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	status(iconWarning, styleIconWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	status(iconInfo, styleIconInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(out, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile lists a written file.
func printFile(path string) {
	fmt.Fprintln(out, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Fprintln(out, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints node and edge counts and whether the description came
// from the cache.
func printStats(nodeCount, edgeCount int, cached bool) {
	origin := styleComputed.Render(iconFresh)
	if cached {
		origin = styleCached.Render(iconCached)
	}
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d nodes", nodeCount)),
		StyleDim.Render(fmt.Sprintf("%d edges", edgeCount)),
		origin,
	}
	fmt.Fprintln(out, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// connectorStyle colors a connector line the way the viewer draws it.
func connectorStyle(c surface.Connector) lipgloss.Style {
	switch c.Color {
	case surface.ColorCopy:
		return fg(colorCopy)
	case surface.ColorNewDep:
		return fg(colorNewDep)
	default:
		return fg(colorDep)
	}
}
