package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/stefanpenner/anchor/pkg/goals"
	"github.com/stefanpenner/anchor/pkg/store"
)

const minWidth = 40
const minHeight = 10

// View implements tea.Model.
func (m Model) View() string {
	w := m.width
	h := m.height
	if w < minWidth {
		w = minWidth
	}
	if h < minHeight {
		h = minHeight
	}

	if m.showHelpModal {
		modal := m.renderHelpModal()
		return placeOverlay(modal, w, h)
	}

	if m.showDeleteConfirm {
		modal := m.renderDeleteModal()
		return placeOverlay(modal, w, h)
	}

	var b strings.Builder

	// Header
	b.WriteString(m.renderHeader(w))
	b.WriteString("\n")

	// Drill-down breadcrumb
	b.WriteString(m.renderBreadcrumb(w))
	b.WriteString("\n")

	// Separator
	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")

	headerLines := 3
	footerLines := 2

	// Search bar takes a line if active
	searchActive := m.isSearching || m.searchQuery != ""
	if searchActive {
		headerLines++
	}

	contentHeight := h - headerLines - footerLines

	if searchActive {
		b.WriteString(m.renderSearchBar(w))
		b.WriteString("\n")
	}

	// Two-panel layout with a thin divider
	leftWidth := w / 3
	rightWidth := w - leftWidth - 1 // 1 char for divider
	if leftWidth < 20 {
		leftWidth = 20
	}
	if rightWidth < 20 {
		rightWidth = 20
	}

	leftPanel := m.renderTreePanel(leftWidth, contentHeight)
	rightPanel := m.renderDetailPanel(rightWidth, contentHeight)

	sepColor := ColorGrayDim
	if m.focusedPane == 1 || m.isEditing {
		sepColor = ColorPurple
	}
	sep := lipgloss.NewStyle().Foreground(sepColor).Render("│")
	leftLines := strings.Split(leftPanel, "\n")
	rightLines := strings.Split(rightPanel, "\n")
	for i := 0; i < contentHeight; i++ {
		b.WriteString(getLine(leftLines, i, leftWidth))
		b.WriteString(sep)
		b.WriteString(getLine(rightLines, i, rightWidth))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")

	b.WriteString(m.renderFooter(w))

	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := HeaderStyle.Render("Anchor")

	completed := 0
	for _, g := range m.allGoals {
		if g.IsCompleted() {
			completed++
		}
	}
	stats := HeaderCountStyle.Render(fmt.Sprintf("%d/%d goals complete", completed, len(m.allGoals)))

	focus := ""
	if t := m.engine.FocusTask(m.allGoals, m.engine.Now()); t != nil {
		focus = "  " + HeaderCountStyle.Render("focus: ") + IncompleteStyle.Render(t.Title)
	}

	status := ""
	if m.statusMsg != "" && time.Now().Before(m.statusTimeout) {
		status = "  " + lipgloss.NewStyle().Foreground(ColorCyan).Render(m.statusMsg)
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(focus) - lipgloss.Width(stats) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}

	return title + focus + strings.Repeat(" ", gap) + status + stats
}

func (m Model) renderBreadcrumb(width int) string {
	crumbs := []string{"Goals"}
	for _, v := range m.stack {
		crumbs = append(crumbs, v.Title)
	}

	var parts []string
	for i, c := range crumbs {
		if i == len(crumbs)-1 {
			parts = append(parts, CrumbActiveStyle.Render(c))
		} else {
			parts = append(parts, CrumbStyle.Render(c))
		}
	}
	line := strings.Join(parts, FooterStyle.Render("›"))
	if lipgloss.Width(line) > width {
		// Keep the deepest levels visible
		line = CrumbStyle.Render("…") + FooterStyle.Render("›") + parts[len(parts)-1]
	}
	return line
}

func (m Model) renderSearchBar(width int) string {
	prefix := SearchBarStyle.Render(" / ")
	query := SearchBarStyle.Render(m.searchQuery)
	cursor := ""
	if m.isSearching {
		cursor = SearchBarStyle.Render("█")
	}

	countStr := ""
	if m.searchQuery != "" {
		countStr = SearchCountStyle.Render(fmt.Sprintf(" %d matches", len(m.searchMatchIDs)))
	}

	left := prefix + query + cursor
	padWidth := width - lipgloss.Width(left) - lipgloss.Width(countStr)
	if padWidth < 1 {
		padWidth = 1
	}

	return left + strings.Repeat(" ", padWidth) + countStr
}

func (m Model) renderTreePanel(width, height int) string {
	var lines []string

	// Reserve last line for the storage location
	treeHeight := height - 1
	if treeHeight < 1 {
		treeHeight = 1
	}

	if len(m.visibleItems) == 0 {
		if len(m.stack) == 0 {
			lines = append(lines, FooterStyle.Render("No goals yet. Press 'A' to add one."))
		} else {
			lines = append(lines, FooterStyle.Render("No tasks here. Press 'A' to add one."))
		}
	}

	// Scrolling window
	startIdx := 0
	endIdx := len(m.visibleItems)
	if len(m.visibleItems) > treeHeight {
		half := treeHeight / 2
		startIdx = m.cursor - half
		if startIdx < 0 {
			startIdx = 0
		}
		endIdx = startIdx + treeHeight
		if endIdx > len(m.visibleItems) {
			endIdx = len(m.visibleItems)
			startIdx = endIdx - treeHeight
			if startIdx < 0 {
				startIdx = 0
			}
		}
	}

	for i := startIdx; i < endIdx; i++ {
		item := m.visibleItems[i]

		if item.IsSectionHeader {
			lines = append(lines, m.renderSectionHeader(item, width))
			continue
		}

		// Rename and deadline inputs replace their row
		if (m.input == inputRename || m.input == inputDeadline) && item.ID == m.inputTarget.ID {
			indent := strings.Repeat(DepthIndent, item.Depth)
			icon := "✎ "
			if m.input == inputDeadline {
				icon = "⏲ "
			}
			lines = append(lines, indent+InputPromptStyle.Render(icon)+m.textInput.View())
			continue
		}

		lines = append(lines, m.renderTreeItem(item, i == m.cursor, width))

		if m.input == inputAdd && i == m.inputInsertAfter {
			indent := strings.Repeat(DepthIndent, m.inputDepth)
			lines = append(lines, indent+InputPromptStyle.Render("> ")+m.textInput.View())
		}
	}

	// Fallback for input when insert point is out of range or no items
	if m.input == inputAdd && (len(m.visibleItems) == 0 || m.inputInsertAfter < startIdx || m.inputInsertAfter >= endIdx) {
		indent := strings.Repeat(DepthIndent, m.inputDepth)
		lines = append(lines, indent+InputPromptStyle.Render("> ")+m.textInput.View())
	}

	for len(lines) < treeHeight {
		lines = append(lines, "")
	}

	lines = append(lines, lipgloss.NewStyle().Foreground(ColorGrayDim).Render(m.storeLocation()))

	return strings.Join(lines, "\n")
}

func (m Model) storeLocation() string {
	switch s := m.store.(type) {
	case *store.FileStore:
		return fileHyperlink(s.GoalsDir())
	case *store.SQLiteStore:
		return "sqlite"
	default:
		return ""
	}
}

func (m Model) renderSectionHeader(item TreeItem, width int) string {
	var style lipgloss.Style
	switch item.Name {
	case SectionOverdue:
		style = SectionOverdueStyle
	case SectionCompleted:
		style = SectionCompletedStyle
	default:
		style = SectionInProgressStyle
	}

	label := style.Bold(true).Render("── " + item.Name + " ")
	remaining := width - lipgloss.Width(label)
	if remaining > 0 {
		label += lipgloss.NewStyle().Foreground(ColorGrayDim).Render(strings.Repeat("─", remaining))
	}
	return label
}

func (m Model) renderTreeItem(item TreeItem, isSelected bool, width int) string {
	indent := strings.Repeat(DepthIndent, item.Depth)
	node := item.Node()

	completing := m.pending.Armed(node.NodeID())

	// Search match highlighting
	isSearchMatch := m.searchMatchIDs[item.ID]
	name := item.Name
	if isSearchMatch && m.searchQuery != "" {
		if isSelected {
			name = highlightMatch(name, m.searchQuery, SearchCharSelectedStyle, SelectedStyle)
		} else {
			name = highlightMatch(name, m.searchQuery, SearchCharStyle, SearchRowStyle)
		}
	}

	suffix := ""
	if item.Task != nil && item.Task.IsRecurring() {
		suffix += " " + DeadlineStyle.Render(IconRecurring)
	}
	if limit := node.Limit(); limit != nil {
		due := m.formatDay(limit)
		if m.engine.IsOverdue(node, m.engine.Now()) {
			suffix += " " + OverdueStyle.Render(due)
		} else {
			suffix += " " + DeadlineStyle.Render(due)
		}
	}
	if completing {
		suffix += " " + CompletingStyle.Render("completing…")
	}

	line := indent + expandIcon(item) + statusIcon(node, completing) + " " + name + suffix

	// Pad to width
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		line += strings.Repeat(" ", width-lineWidth)
	}

	if isSearchMatch && !isSelected {
		line = SearchRowStyle.Render(line)
	} else if isSelected {
		line = SelectedStyle.Render(line)
	}

	return line
}

func stateOf(n goals.Node) goals.CompletionState {
	switch n := n.(type) {
	case *goals.Goal:
		return n.State
	case *goals.Task:
		return n.State
	}
	return ""
}

func (m Model) renderDetailPanel(width, height int) string {
	item, ok := m.selected()
	if !ok {
		if len(m.stack) == 0 {
			return FooterStyle.Render(" Select a goal to view details")
		}
		item = m.levelTarget()
		if item.Node() == nil {
			return ""
		}
	}

	// Reserve last line for the goal file path
	bodyHeight := height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	header := m.renderNodeHeader(item)
	pathLine := ""
	if path := m.goalFile(item.Goal); path != "" {
		pathLine = lipgloss.NewStyle().Foreground(ColorGrayDim).Render(fileHyperlink(path))
	}

	if m.isEditing {
		headerLines := strings.Split(m.renderMarkdown(header), "\n")
		lines := append(headerLines, strings.Split(m.noteEditor.View(), "\n")...)
		return pinBottom(lines, bodyHeight, pathLine)
	}

	var md strings.Builder
	md.WriteString(header)
	if body := m.bodyFor(item); body != "" {
		md.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			md.WriteString("\n")
		}
	}

	lines := strings.Split(m.renderMarkdown(md.String()), "\n")

	// Apply scroll offset
	scroll := m.notesScroll
	if scroll > len(lines)-1 {
		scroll = len(lines) - 1
	}
	if scroll < 0 {
		scroll = 0
	}
	return pinBottom(lines[scroll:], bodyHeight, pathLine)
}

// bodyFor is the free text shown under the metadata: a goal's motivation, or
// the projection's description for a task.
func (m Model) bodyFor(item TreeItem) string {
	if item.Task == nil {
		return item.Goal.Motivation
	}
	v := m.engine.Project(item.Task)
	var b strings.Builder
	b.WriteString("_" + v.Motivation + "_\n")
	if item.Task.Habit != nil && item.Task.Habit.Label != "" {
		b.WriteString("\n**Habit:** " + item.Task.Habit.Label)
		if item.Task.Habit.Time != nil {
			b.WriteString(" at " + item.Task.Habit.Time.Format("15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMarkdown(md string) string {
	rendered := md
	if m.glamourRenderer != nil {
		if out, err := m.glamourRenderer.Render(md); err == nil {
			rendered = out
		}
	}
	return strings.TrimRight(rendered, "\n ")
}

// renderNodeHeader builds the markdown header (title and metadata) for a row.
func (m Model) renderNodeHeader(item TreeItem) string {
	var md strings.Builder
	node := item.Node()

	md.WriteString("# " + node.NodeTitle() + "\n\n")

	var meta []string
	if m.pending.Armed(node.NodeID()) {
		meta = append(meta, "**State:** completing…")
	} else {
		meta = append(meta, "**State:** "+string(stateOf(node)))
	}
	if m.engine.IsOverdue(node, m.engine.Now()) {
		meta = append(meta, "**Overdue**")
	}

	var line2 []string
	if t := item.Task; t != nil {
		meta = append(meta, "**Cadence:** "+t.Cadence.String())
		line2 = append(line2,
			"**Due:** "+m.formatDay(t.Limit()),
			"**Hard deadline:** "+m.formatDay(t.HardDeadline),
			"**Difficulty:** "+string(t.Difficulty),
			fmt.Sprintf("**Tier:** %d", t.Tier),
			fmt.Sprintf("**Progress:** %.0f%%", m.engine.TaskProgress(t)*100),
		)
	} else {
		g := item.Goal
		meta = append(meta, "**Cadence:** "+g.Cadence.String())
		if len(g.Categories) > 0 {
			cats := make([]string, len(g.Categories))
			for i, c := range g.Categories {
				cats[i] = string(c)
			}
			meta = append(meta, "**Categories:** "+strings.Join(cats, ", "))
		}
		line2 = append(line2,
			"**Due:** "+m.formatDay(g.Limit()),
			"**Hard deadline:** "+m.formatDay(g.HardDeadline),
			fmt.Sprintf("**Progress:** %.0f%%", m.engine.Progress(g)*100),
		)
		if tiers := m.engine.TierCounts(g); len(tiers) > 0 {
			line2 = append(line2, "**Tiers:** "+formatTiers(tiers))
		}
	}

	md.WriteString(strings.Join(meta, " | ") + "\n\n")
	md.WriteString(strings.Join(line2, " | ") + "\n\n")
	return md.String()
}

func formatTiers(tiers map[int]int) string {
	keys := make([]int, 0, len(tiers))
	for k := range tiers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d×%d", tiers[k], k)
	}
	return strings.Join(parts, " ")
}

func (m Model) renderFooter(width int) string {
	var text string
	switch {
	case m.input != inputNone:
		text = "enter confirm  esc cancel"
	case m.isEditing:
		text = "esc save & exit  ctrl+s save  ctrl+c cancel"
	case m.isSearching:
		text = "type to search  enter/↓ keep filter  esc clear"
	case m.searchQuery != "":
		text = "esc/enter clear filter  ↑↓ nav"
	case m.focusedPane == 1:
		text = "↑↓ scroll details  tab tree  e edit  E $EDITOR  ? help"
	default:
		h := m.help
		h.Width = width
		return h.ShortHelpView(m.keys.ShortHelp())
	}
	return FooterStyle.Render(text)
}

func (m Model) renderHelpModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(FooterStyle.Render("Press Esc or ? to close"))

	return ModalStyle.Render(b.String())
}

func (m Model) renderDeleteModal() string {
	var b strings.Builder

	kind := "Goal"
	if m.deleteTarget.Task != nil {
		kind = "Task"
	}
	b.WriteString(ModalTitleStyle.Render("Delete " + kind))
	b.WriteString("\n\n")
	b.WriteString(ModalLabelStyle.Render(kind) + ModalValueStyle.Render(m.deleteTarget.Name) + "\n\n")
	b.WriteString("Delete it and everything under it?\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorGreen).Render("[y]") + " Yes  ")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorRed).Render("[n]") + " No")

	return ModalStyle.Render(b.String())
}

// highlightMatch splits name into before/match/after and styles the match portion
// with charStyle, and the rest with rowStyle. The match is case-insensitive.
func highlightMatch(name, query string, charStyle, rowStyle lipgloss.Style) string {
	lower := strings.ToLower(name)
	idx := strings.Index(lower, strings.ToLower(query))
	if idx < 0 {
		return rowStyle.Render(name)
	}
	before := name[:idx]
	match := name[idx : idx+len(query)]
	after := name[idx+len(query):]

	var result string
	if before != "" {
		result += rowStyle.Render(before)
	}
	result += charStyle.Render(match)
	if after != "" {
		result += rowStyle.Render(after)
	}
	return result
}

// fileHyperlink wraps a file path in an OSC 8 terminal hyperlink so it's clickable.
func fileHyperlink(path string) string {
	url := "file://" + path
	return fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", url, path)
}

// pinBottom truncates or pads lines to height and appends footer.
func pinBottom(lines []string, height int, footer string) string {
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = append(lines, footer)
	return strings.Join(lines, "\n")
}

func getLine(lines []string, idx int, width int) string {
	if idx < len(lines) {
		line := lines[idx]
		lineWidth := lipgloss.Width(line)
		if lineWidth < width {
			return line + strings.Repeat(" ", width-lineWidth)
		}
		return line
	}
	return strings.Repeat(" ", width)
}

func placeOverlay(modal string, width, height int) string {
	modalLines := strings.Split(modal, "\n")

	topPadding := (height - len(modalLines)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	leftPadding := (width - lipgloss.Width(modalLines[0])) / 2
	if leftPadding < 0 {
		leftPadding = 0
	}

	var result strings.Builder
	for i := 0; i < topPadding; i++ {
		result.WriteString("\n")
	}

	for _, line := range modalLines {
		result.WriteString(strings.Repeat(" ", leftPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}

	return result.String()
}
