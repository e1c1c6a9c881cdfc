// Package ui renders the styled terminal output for the info command:
// a branded header, the event capability listing, and the platform
// topology summary. All renderers are pure string builders so tests can
// assert on their output directly.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pwalsh/cachemon/internal/backend"
)

// HeaderWidth is the width of the header divider
const HeaderWidth = 50

// RenderHeader renders the branded header: name, version, divider.
func RenderHeader(version string) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(ColorInfo).
		Bold(true)
	versionStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)
	dividerStyle := lipgloss.NewStyle().
		Foreground(ColorMuted)

	var output strings.Builder
	output.WriteString(titleStyle.Render("cachemon"))
	output.WriteString(" ")
	output.WriteString(versionStyle.Render(version))
	output.WriteString("\n")
	output.WriteString(dividerStyle.Render(strings.Repeat("━", HeaderWidth)))
	output.WriteString("\n")
	return output.String()
}

// eventName maps an event type to its display name.
func eventName(e backend.Event) string {
	switch e {
	case backend.EventLLCOccupancy:
		return "LLC occupancy"
	case backend.EventLocalBandwidth:
		return "Local memory bandwidth"
	case backend.EventRemoteBandwidth:
		return "Remote memory bandwidth"
	default:
		return e.String()
	}
}

// RenderCapability renders the supported-events listing: one line per
// event with its short tag and whether per-pid monitoring works.
func RenderCapability(c *backend.Capability) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	tagStyle := lipgloss.NewStyle().
		Foreground(ColorInfo)
	yesStyle := lipgloss.NewStyle().
		Foreground(ColorSuccess)
	noStyle := lipgloss.NewStyle().
		Foreground(ColorMuted)

	var output strings.Builder
	output.WriteString(sectionStyle.Render("Supported events"))
	output.WriteString("\n")

	if len(c.Events) == 0 {
		output.WriteString(noStyle.Render("  none"))
		output.WriteString("\n")
		return output.String()
	}

	for _, info := range c.Events {
		pid := noStyle.Render("core only")
		if info.PIDSupport {
			pid = yesStyle.Render("core + pid")
		}
		output.WriteString(fmt.Sprintf("  %s  %-24s %s\n",
			tagStyle.Render(fmt.Sprintf("%-4s", info.Type.String())),
			eventName(info.Type), pid))
	}
	return output.String()
}

// RenderTopology renders the platform summary: core count and the core
// ids grouped by physical socket.
func RenderTopology(topo *backend.CPUInfo) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	labelStyle := lipgloss.NewStyle().
		Foreground(ColorMuted)

	sockets := make(map[int][]int)
	for _, core := range topo.Cores {
		sockets[core.Socket] = append(sockets[core.Socket], core.ID)
	}
	ids := make([]int, 0, len(sockets))
	for id := range sockets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var output strings.Builder
	output.WriteString(sectionStyle.Render("Topology"))
	output.WriteString("\n")
	output.WriteString(fmt.Sprintf("  %s %d\n",
		labelStyle.Render("logical cores:"), topo.NumCores()))
	for _, id := range ids {
		cores := sockets[id]
		sort.Ints(cores)
		output.WriteString(fmt.Sprintf("  %s %s\n",
			labelStyle.Render(fmt.Sprintf("socket %d:", id)),
			formatCoreList(cores)))
	}
	return output.String()
}

// formatCoreList compresses a sorted core list into range notation,
// e.g. [0 1 2 3 8] becomes "0-3,8".
func formatCoreList(cores []int) string {
	if len(cores) == 0 {
		return ""
	}
	var parts []string
	start, prev := cores[0], cores[0]
	flush := func() {
		if start == prev {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, c := range cores[1:] {
		if c == prev+1 {
			prev = c
			continue
		}
		flush()
		start, prev = c, c
	}
	flush()
	return strings.Join(parts, ",")
}
