package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"streamcurate/pkg/session"
)

// gaugeWidth is the threshold bar width in cells.
const gaugeWidth = 24

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	gaugeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	keyHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderBundles())
		b.WriteString("\n")
		b.WriteString(m.renderThreshold())
		if m.slicer != nil {
			b.WriteString("\n")
			b.WriteString(m.renderAnatomy())
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())

	out := b.String()
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("streamcurate"))
	b.WriteString(statsStyle.Render(fmt.Sprintf("  prefix %s  %d bundles",
		m.session.Prefix(), len(m.session.Bundles()))))
	return b.String()
}

func (m Model) renderBundles() string {
	labels := m.session.Bundles()
	if len(labels) == 0 {
		return statsStyle.Render("no bundles left; press home to merge everything back") + "\n\n" +
			m.renderCollections()
	}

	selected := m.session.Selected()
	var b strings.Builder
	b.WriteString(statsStyle.Render(fmt.Sprintf("     %-14s %7s %9s  %s",
		"bundle", "lines", "clusters", "state")))
	b.WriteString("\n")

	for _, label := range labels {
		bun, ok := m.session.Lookup(label)
		if !ok {
			continue
		}

		marker, state := "  ", string(session.VisibilityVisible)
		if label == selected {
			marker, state = "> ", "selected"
		} else if selected != "" {
			state = string(m.session.LastVisibility())
		}

		name := fmt.Sprintf("%-14s", label)
		if label == selected {
			name = selectedStyle.Render(name)
		}

		swatch := "  "
		if c := bun.Color(); c != nil {
			swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("██")
		}

		fmt.Fprintf(&b, "%s%s %s %7d %9d  %s\n",
			marker, swatch, name, bun.Len(), len(bun.Clusters()), state)
	}

	b.WriteString("\n")
	b.WriteString(m.renderCollections())
	return b.String()
}

func (m Model) renderCollections() string {
	return statsStyle.Render(fmt.Sprintf("inliers %d  outliers %d  undo %d",
		m.session.Inliers().Len(), m.session.Outliers().Len(), m.session.UndoDepth()))
}

func (m Model) renderThreshold() string {
	if m.entering {
		return "threshold: " + m.input.View()
	}
	if m.session.Selected() == "" {
		return statsStyle.Render("tab selects the biggest bundle; t sets a clustering threshold")
	}

	max := m.session.ThresholdMax()
	value := m.session.LastThreshold()
	if max <= 0 || math.IsNaN(value) {
		return statsStyle.Render("threshold unavailable for this bundle")
	}

	ratio := value / max
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*float64(gaugeWidth) + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", gaugeWidth-filled)

	return fmt.Sprintf("threshold %s %.1f/%.1f mm  %d clusters",
		gaugeStyle.Render(bar), value, max, m.session.LastClusterCount())
}

func (m Model) renderAnatomy() string {
	w, h, d := m.volume.Dims()
	return statsStyle.Render(fmt.Sprintf("anatomy slices  x %d/%d  y %d/%d  z %d/%d",
		m.slicer.X, w-1, m.slicer.Y, h-1, m.slicer.Z, d-1))
}

func (m Model) renderFooter() string {
	var b strings.Builder
	for _, line := range m.sink.lines {
		b.WriteString(statusStyle.Render(line))
		b.WriteString("\n")
	}

	keys := []string{
		"[Tab] Select", "[A] Accept", "[R] Reject", "[U] Undo",
		"[Enter] Split", "[S] Save", "[?] Help", "[Q] Quit",
	}
	b.WriteString(keyHintStyle.Render(strings.Join(keys, "  ")))
	return b.String()
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	items := []struct {
		key  string
		desc string
	}{
		{"Tab / Shift+Tab", "Select the next or previous bundle, biggest first"},
		{"Esc", "Deselect"},
		{"Space", "Dim, hide or show the unselected bundles"},
		{"C / Shift+C", "Centroid view / streamline view"},
		{"", ""},
		{"T", "Type a clustering threshold in mm"},
		{"←/→", "Nudge the threshold"},
		{"Enter", "Split the selected bundle into the previewed clusters"},
		{"", ""},
		{"A", "Accept the selected bundle into the inliers"},
		{"R", "Reject the selected bundle into the outliers"},
		{"U", "Undo the last accept or reject"},
		{"S", "Save all bundles and collections"},
		{"Home", "Merge everything back into one bundle"},
		{"", ""},
		{"X/Y/Z, Shift+X/Y/Z", "Move the anatomy slices"},
		{"?", "Toggle this help"},
		{"Q", "Quit"},
	}

	for _, item := range items {
		if item.key == "" {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "  %s  %s\n",
			helpKeyStyle.Render(fmt.Sprintf("%-18s", item.key)),
			helpDescStyle.Render(item.desc))
	}

	b.WriteString("\n")
	b.WriteString(helpDescStyle.Render("Press ? or q to close help"))
	return b.String()
}
