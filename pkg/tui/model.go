package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/stefanpenner/anchor/pkg/cadence"
	"github.com/stefanpenner/anchor/pkg/goals"
	"github.com/stefanpenner/anchor/pkg/store"
	gitsync "github.com/stefanpenner/anchor/pkg/sync"
)

// selfWriteWindow is how long after our own Save a file change event is
// attributed to that save rather than to another writer.
const selfWriteWindow = time.Second

// FileChangedMsg is sent when the file watcher detects changes.
type FileChangedMsg struct{}

// SyncDoneMsg is sent when git sync completes.
type SyncDoneMsg struct {
	Err error
}

// EditorFinishedMsg is sent when $EDITOR returns.
type EditorFinishedMsg struct {
	Err error
}

// completeMsg fires once a deferred completion's delay has elapsed.
type completeMsg struct {
	Ticket goals.Ticket
}

type inputMode int

const (
	inputNone inputMode = iota
	inputAdd
	inputRename
	inputDeadline
)

// Options wires a Model to its collaborators.
type Options struct {
	Store  store.Store
	Engine *goals.Engine
	// Git enables the sync key; nil disables it.
	Git *gitsync.Git
	// CompletionDelay is how long a row shows as completing before the
	// toggle is applied.
	CompletionDelay time.Duration
	Logger          *slog.Logger
}

// Model is the Bubble Tea model for browsing and completing goal trees.
//
// The tree pane shows one level at a time. At the top level it lists every
// goal; opening a row pushes a projection of that goal or task onto stack and
// the pane then lists the projection's active tasks.
type Model struct {
	store   store.Store
	engine  *goals.Engine
	git     *gitsync.Git
	logger  *slog.Logger
	delay   time.Duration
	pending *goals.Pending
	keys    KeyMap
	help    help.Model
	width   int
	height  int

	allGoals      []*goals.Goal
	stack         []goals.VirtualGoal
	visibleItems  []TreeItem
	expandedState map[string]bool
	cursor        int
	focusedPane   int // 0 = tree, 1 = details
	notesScroll   int
	lastWrite     time.Time

	// Modal state
	showHelpModal     bool
	showDeleteConfirm bool
	deleteTarget      TreeItem

	// Input mode (add, rename, deadline)
	input            inputMode
	textInput        textinput.Model
	inputTarget      TreeItem // row the input applies to; zero for a new goal
	inputDepth       int      // indentation depth for the input line in the tree
	inputInsertAfter int      // visible items index to insert input after

	// Inline motivation edit mode
	isEditing  bool
	noteEditor textarea.Model
	editGoalID string

	// Search state
	isSearching    bool
	searchQuery    string
	searchMatchIDs map[string]bool // IDs of items matching query
	searchAncIDs   map[string]bool // IDs of ancestor items (for context)

	// Status message
	statusMsg     string
	statusTimeout time.Time

	// Cached glamour renderer (expensive to create)
	glamourRenderer *glamour.TermRenderer
	glamourWidth    int

	// Track whether all items are expanded for toggle
	allExpanded bool
}

// NewModel creates a new TUI model over the store's working set.
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.CharLimit = 120

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := Model{
		store:         opts.Store,
		engine:        opts.Engine,
		git:           opts.Git,
		logger:        logger,
		delay:         opts.CompletionDelay,
		pending:       goals.NewPending(),
		keys:          DefaultKeyMap(),
		help:          newHelp(),
		expandedState: make(map[string]bool),
		textInput:     ti,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Pre-create glamour renderer at the right width
		rightWidth := msg.Width - (msg.Width / 4) - 1 - 2
		if rightWidth < 20 {
			rightWidth = 20
		}
		m.getGlamourRenderer(rightWidth)
		if m.isEditing {
			m.sizeEditor()
		}
		m.refresh()
		return m, tea.ClearScreen

	case FileChangedMsg:
		if time.Since(m.lastWrite) < selfWriteWindow {
			return m, nil
		}
		m.reload()
		return m, nil

	case completeMsg:
		m.finishCompletion(msg.Ticket)
		return m, nil

	case SyncDoneMsg:
		if msg.Err != nil {
			m.fail("Sync", msg.Err)
		} else {
			m.setStatus("Synced successfully")
			m.reload()
		}
		return m, nil

	case EditorFinishedMsg:
		if msg.Err != nil {
			m.fail("Editor", msg.Err)
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.input != inputNone {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	if m.isEditing {
		var cmd tea.Cmd
		m.noteEditor, cmd = m.noteEditor.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input != inputNone {
		return m.handleInputMode(msg)
	}

	if m.isEditing {
		return m.handleEditMode(msg)
	}

	if m.isSearching {
		return m.handleSearchInput(msg)
	}

	// Help modal
	if m.showHelpModal {
		switch msg.String() {
		case "esc", "enter", "?", "q":
			m.showHelpModal = false
		}
		return m, nil
	}

	// Delete confirmation
	if m.showDeleteConfirm {
		switch msg.String() {
		case "y", "Y":
			m.deleteItem(m.deleteTarget)
			m.showDeleteConfirm = false
		case "n", "N", "esc":
			m.showDeleteConfirm = false
		}
		return m, nil
	}

	// If search filter is active (not typing), Esc/Enter clears it
	if m.searchQuery != "" && (msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter) {
		m.clearSearch()
		return m, nil
	}

	// Normal mode
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.focusedPane == 1 {
			if m.notesScroll > 0 {
				m.notesScroll--
			}
		} else {
			m.moveCursor(-1)
		}

	case key.Matches(msg, m.keys.Down):
		if m.focusedPane == 1 {
			m.notesScroll++
		} else {
			m.moveCursor(1)
		}

	case key.Matches(msg, m.keys.Right):
		if item, ok := m.selected(); ok && item.HasChildren {
			m.expandedState[item.ID] = true
			m.rebuildVisible()
		}

	case key.Matches(msg, m.keys.Left):
		if item, ok := m.selected(); ok && item.IsExpanded {
			m.expandedState[item.ID] = false
			m.rebuildVisible()
		}

	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.selected(); ok {
			m.open(item)
		}

	case key.Matches(msg, m.keys.Back), msg.Type == tea.KeyEsc:
		m.back()

	case key.Matches(msg, m.keys.Space):
		if item, ok := m.selected(); ok {
			cmd := m.toggle(item)
			return m, cmd
		}

	case key.Matches(msg, m.keys.Tab):
		m.focusedPane = (m.focusedPane + 1) % 2

	case key.Matches(msg, m.keys.InlineEdit):
		if g := m.goalInFocus(); g != nil {
			m.enterEditMode(g)
			return m, textarea.Blink
		}

	case key.Matches(msg, m.keys.ExternalEdit):
		if g := m.goalInFocus(); g != nil {
			cmd := m.openEditor(g)
			return m, cmd
		}

	case key.Matches(msg, m.keys.AddTop):
		target := m.levelTarget()
		m.beginInput(inputAdd, target, "")
		m.inputDepth = 0
		m.inputInsertAfter = len(m.visibleItems) - 1
		if target.Node() == nil {
			m.textInput.Placeholder = "new goal title"
		} else {
			m.textInput.Placeholder = "task title under " + target.Node().NodeTitle()
		}
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Add):
		parent, ok := m.selected()
		if !ok {
			parent = m.levelTarget()
		}
		m.beginInput(inputAdd, parent, "")
		if parent.Node() == nil {
			m.inputDepth = 0
			m.inputInsertAfter = len(m.visibleItems) - 1
			m.textInput.Placeholder = "new goal title"
			return m, textinput.Blink
		}
		if ok {
			m.inputDepth = parent.Depth + 1
			// Expand parent so children are visible
			if parent.HasChildren && !parent.IsExpanded {
				m.expandedState[parent.ID] = true
				m.rebuildVisible()
			}
			// Find last visible descendant of parent to place input after
			m.inputInsertAfter = m.cursor
			for j := m.cursor + 1; j < len(m.visibleItems); j++ {
				if m.visibleItems[j].Depth <= parent.Depth {
					break
				}
				m.inputInsertAfter = j
			}
		} else {
			m.inputInsertAfter = len(m.visibleItems) - 1
		}
		m.textInput.Placeholder = "task title under " + parent.Node().NodeTitle()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Rename):
		if item, ok := m.selected(); ok {
			m.beginInput(inputRename, item, item.Name)
			m.textInput.Placeholder = "new title"
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Deadline):
		if item, ok := m.selected(); ok {
			current := ""
			if d := hardDeadline(item.Node()); d != nil {
				current = d.In(m.engine.Calendar().Location()).Format(time.DateOnly)
			}
			m.beginInput(inputDeadline, item, current)
			m.textInput.Placeholder = "YYYY-MM-DD"
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Cadence):
		if item, ok := m.selected(); ok {
			m.cycleCadence(item)
		}

	case key.Matches(msg, m.keys.CompleteAll):
		if item, ok := m.selected(); ok {
			m.completeSubtree(item)
		}

	case key.Matches(msg, m.keys.Delete):
		if item, ok := m.selected(); ok {
			m.deleteTarget = item
			m.showDeleteConfirm = true
		}

	case key.Matches(msg, m.keys.ToggleExpand):
		if m.allExpanded {
			m.expandedState = make(map[string]bool)
			m.allExpanded = false
		} else {
			m.expandAll()
			m.allExpanded = true
		}
		m.rebuildVisible()

	case key.Matches(msg, m.keys.Reload):
		m.reload()
		m.setStatus("Reloaded")

	case key.Matches(msg, m.keys.Sync):
		cmd := m.doSync()
		return m, cmd

	case key.Matches(msg, m.keys.Search):
		m.isSearching = true
		m.searchQuery = ""
		m.searchMatchIDs = nil
		m.searchAncIDs = nil

	case key.Matches(msg, m.keys.Help):
		m.showHelpModal = !m.showHelpModal
	}

	return m, nil
}

// handleInputMode handles key messages while the single-line input is open.
func (m Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.textInput.Value())
		mode, target := m.input, m.inputTarget
		m.input = inputNone
		if value == "" {
			return m, nil
		}
		switch mode {
		case inputAdd:
			m.addUnder(target, value)
		case inputRename:
			m.rename(target, value)
		case inputDeadline:
			m.setDeadline(target, value)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
}

// handleEditMode handles key messages while inline editing.
func (m Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		// Save and exit
		if m.saveInlineEdit() {
			m.setStatus("Saved")
		}
		m.isEditing = false
		m.noteEditor.Blur()
		m.refresh()
		return m, nil

	case msg.Type == tea.KeyCtrlS:
		// Save but stay in edit mode
		if m.saveInlineEdit() {
			m.setStatus("Saved")
		}
		m.refresh()
		return m, nil

	case msg.Type == tea.KeyCtrlC:
		// Cancel without saving
		m.isEditing = false
		m.noteEditor.Blur()
		m.setStatus("Edit cancelled")
		return m, nil

	default:
		var cmd tea.Cmd
		m.noteEditor, cmd = m.noteEditor.Update(msg)
		return m, cmd
	}
}

// handleSearchInput handles key messages while typing in the search bar.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Exit search and clear filter
		m.isSearching = false
		m.searchQuery = ""
		m.searchMatchIDs = nil
		m.searchAncIDs = nil
		m.rebuildVisible()
		return m, nil

	case tea.KeyEnter, tea.KeyDown, tea.KeyTab:
		// Exit search input but keep filter active
		m.isSearching = false
		return m, nil

	case tea.KeyBackspace:
		if len(m.searchQuery) > 0 {
			_, size := utf8.DecodeLastRuneInString(m.searchQuery)
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-size]
		}
		m.applySearchFilter()
		m.rebuildVisible()
		return m, nil

	default:
		if msg.Type == tea.KeyRunes {
			m.searchQuery += string(msg.Runes)
			m.applySearchFilter()
			m.rebuildVisible()
		}
		return m, nil
	}
}

func (m *Model) beginInput(mode inputMode, target TreeItem, value string) {
	m.input = mode
	m.inputTarget = target
	m.inputDepth = target.Depth
	m.inputInsertAfter = m.cursor
	m.textInput.Reset()
	m.textInput.SetValue(value)
	m.textInput.Focus()
}

// toggle starts or cancels a completion. Completing is deferred by the
// configured delay so a second press can undo it; reopening is immediate.
func (m *Model) toggle(item TreeItem) tea.Cmd {
	node := item.Node()
	id := node.NodeID()
	if m.pending.Armed(id) {
		m.pending.Cancel(id)
		m.setStatus("Cancelled: " + node.NodeTitle())
		return nil
	}
	if node.IsCompleted() {
		m.applyToggle(node)
		return nil
	}
	ticket := m.pending.Arm(id)
	return tea.Tick(m.delay, func(time.Time) tea.Msg {
		return completeMsg{Ticket: ticket}
	})
}

// finishCompletion runs a deferred completion if its ticket is still live
// and the node still exists and is still in progress.
func (m *Model) finishCompletion(ticket goals.Ticket) {
	if !m.pending.Claim(ticket) {
		return
	}
	node, err := m.store.Find(ticket.NodeID)
	if err != nil {
		m.logger.Debug("deferred completion target is gone", "id", ticket.NodeID)
		return
	}
	if node.IsCompleted() {
		return
	}
	m.applyToggle(node)
}

// applyToggle toggles node through its projection and commits the result.
func (m *Model) applyToggle(node goals.Node) {
	var (
		g      *goals.Goal
		before goals.VirtualGoal
	)
	switch n := node.(type) {
	case *goals.Goal:
		g, before = n, m.engine.ProjectGoal(n)
	case *goals.Task:
		g, before = n.Goal, m.engine.Project(n)
	default:
		return
	}

	after, err := m.engine.ToggleProjection(g, before)
	if errors.Is(err, goals.ErrBlocked) {
		m.setStatus("Blocked: " + before.Title + " has open subtasks due first")
		return
	}
	if err != nil {
		m.fail("Toggle", err)
		return
	}

	switch {
	case after.Completed:
		m.setStatus("Completed: " + after.Title)
	case before.Completed:
		m.setStatus("Reopened: " + after.Title)
	default:
		m.setStatus(after.Title + " next due " + m.formatDay(after.Deadline()))
	}
	m.commit()
}

func (m *Model) addUnder(target TreeItem, title string) {
	spec := goals.TaskSpec{Title: title}
	var err error
	switch {
	case target.Task != nil:
		_, err = m.engine.AddSubtask(target.Task, spec)
	case target.Goal != nil:
		_, err = m.engine.AddRootTask(target.Goal, spec)
	default:
		var g *goals.Goal
		g, err = m.engine.NewGoal(goals.GoalSpec{Title: title})
		if err == nil {
			err = m.store.Insert(g)
		}
	}
	if err != nil {
		m.fail("Add", err)
		return
	}
	m.setStatus("Created: " + title)
	m.commit()
}

func (m *Model) rename(target TreeItem, title string) {
	switch {
	case target.Task != nil:
		target.Task.Title = title
	case target.Goal != nil:
		target.Goal.Title = title
	default:
		return
	}
	m.setStatus("Renamed to: " + title)
	m.commit()
}

func (m *Model) setDeadline(target TreeItem, value string) {
	cal := m.engine.Calendar()
	day, err := time.ParseInLocation(time.DateOnly, value, cal.Location())
	if err != nil {
		m.setStatus("Deadline must look like YYYY-MM-DD")
		return
	}
	d := cal.EndOfDay(day)

	switch {
	case target.Task != nil:
		err = m.engine.UpdateDeadline(target.Task, d)
	case target.Goal != nil:
		err = m.engine.UpdateGoalDeadline(target.Goal, d)
	default:
		return
	}
	var verr *goals.ValidationError
	if errors.As(err, &verr) {
		m.setStatus(verr.Error())
		return
	}
	if err != nil {
		m.fail("Deadline", err)
		return
	}
	m.setStatus(target.Name + " due " + m.formatDay(&d))
	m.commit()
}

func (m *Model) cycleCadence(item TreeItem) {
	if item.Task == nil {
		m.setStatus("Cadence changes apply to tasks")
		return
	}
	next := nextCadence(item.Task.Cadence)
	if !m.engine.UpdateCadence(item.Task, next) {
		return
	}
	m.setStatus(item.Name + " → " + next.String())
	m.commit()
}

func nextCadence(c cadence.Cadence) cadence.Cadence {
	i := slices.Index(cadence.All, c)
	return cadence.All[(i+1)%len(cadence.All)]
}

func (m *Model) completeSubtree(item TreeItem) {
	if item.Task == nil {
		m.setStatus("Open the goal and complete its tasks")
		return
	}
	m.pending.Cancel(item.Task.ID)
	m.engine.CompleteSubtree(item.Task)
	m.setStatus("Completed everything under " + item.Name)
	m.commit()
}

func (m *Model) deleteItem(item TreeItem) {
	var err error
	switch {
	case item.Task != nil:
		err = m.engine.DeleteTask(item.Task)
	case item.Goal != nil:
		err = m.store.Delete(item.Goal)
	default:
		return
	}
	if err != nil {
		m.fail("Delete", err)
		return
	}
	m.pending.Cancel(item.ID)
	m.setStatus("Deleted: " + item.Name)
	m.commit()
	if m.cursor >= len(m.visibleItems) && m.cursor > 0 {
		m.cursor--
	}
}

// commit saves the working set and redraws. A failed save leaves the
// in-memory change in place.
func (m *Model) commit() {
	m.lastWrite = time.Now()
	if err := m.store.Save(); err != nil {
		m.fail("Save", err)
	}
	m.refresh()
}

// open pushes a projection of the row's node and shows its tasks.
func (m *Model) open(item TreeItem) {
	var v goals.VirtualGoal
	if item.Task != nil {
		v = m.engine.Project(item.Task)
	} else {
		v = m.engine.ProjectGoal(item.Goal)
	}
	m.clearSearch()
	m.stack = append(m.stack, v)
	m.cursor = 0
	m.notesScroll = 0
	m.rebuildVisible()
}

// back pops one level and puts the cursor on the row that was opened.
func (m *Model) back() {
	if len(m.stack) == 0 {
		return
	}
	m.clearSearch()
	popped := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	m.notesScroll = 0
	m.rebuildVisible()
	m.moveCursorTo(popped.ID)
}

// levelTarget is the node whose tasks the current level lists, as a row.
func (m *Model) levelTarget() TreeItem {
	if len(m.stack) == 0 {
		return TreeItem{}
	}
	v := m.stack[len(m.stack)-1]
	g := m.findGoal(v.GoalID)
	if g == nil {
		return TreeItem{}
	}
	item := TreeItem{ID: v.ID, Name: v.Title, Goal: g}
	if v.Virtual {
		item.Task = g.FindTask(v.SourceTaskID)
		if item.Task == nil {
			return TreeItem{}
		}
	}
	return item
}

// goalInFocus is the goal owning the selected row, else the current level's.
func (m *Model) goalInFocus() *goals.Goal {
	if item, ok := m.selected(); ok {
		return item.Goal
	}
	return m.levelTarget().Goal
}

func (m Model) selected() (TreeItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visibleItems) {
		return TreeItem{}, false
	}
	item := m.visibleItems[m.cursor]
	if item.IsSectionHeader {
		return TreeItem{}, false
	}
	return item, true
}

func (m *Model) moveCursor(delta int) {
	next := m.cursor + delta
	for next >= 0 && next < len(m.visibleItems) && m.visibleItems[next].IsSectionHeader {
		next += delta
	}
	if next >= 0 && next < len(m.visibleItems) {
		m.cursor = next
	}
	m.notesScroll = 0
}

func (m *Model) moveCursorTo(id string) {
	for i, item := range m.visibleItems {
		if item.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *Model) findGoal(id string) *goals.Goal {
	for _, g := range m.allGoals {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// enterEditMode sets up the textarea for inline editing of a goal's motivation.
func (m *Model) enterEditMode(g *goals.Goal) {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.SetValue(g.Motivation)

	m.isEditing = true
	m.noteEditor = ta
	m.editGoalID = g.ID
	m.focusedPane = 1
	m.sizeEditor()
	m.noteEditor.Focus()
}

func (m *Model) sizeEditor() {
	// Size the editor to the right panel, leaving room for header and path
	editorWidth := m.width - (m.width / 4) - 1
	if editorWidth < 20 {
		editorWidth = 20
	}
	contentHeight := m.height - 5 // outer chrome (header/crumbs/seps/footer)
	editorHeight := contentHeight - 4 - 1
	if editorHeight < 3 {
		editorHeight = 3
	}
	m.noteEditor.SetWidth(editorWidth)
	m.noteEditor.SetHeight(editorHeight)
}

// saveInlineEdit writes the textarea content back to the goal.
func (m *Model) saveInlineEdit() bool {
	g := m.findGoal(m.editGoalID)
	if g == nil {
		m.setStatus("Save error: goal no longer exists")
		return false
	}
	g.Motivation = m.noteEditor.Value()
	m.lastWrite = time.Now()
	if err := m.store.Save(); err != nil {
		m.fail("Save", err)
		return false
	}
	return true
}

func (m *Model) clearSearch() {
	curID := ""
	if item, ok := m.selected(); ok {
		curID = item.ID
	}
	m.isSearching = false
	m.searchQuery = ""
	m.searchMatchIDs = nil
	m.searchAncIDs = nil
	m.rebuildVisible()
	if curID != "" {
		m.moveCursorTo(curID)
	}
}

// applySearchFilter computes searchMatchIDs and searchAncIDs based on searchQuery.
func (m *Model) applySearchFilter() {
	if m.searchQuery == "" {
		m.searchMatchIDs = nil
		m.searchAncIDs = nil
		return
	}

	query := strings.ToLower(m.searchQuery)
	m.searchMatchIDs = make(map[string]bool)
	m.searchAncIDs = make(map[string]bool)

	// Search the fully expanded level, not just what is visible
	allItems := m.flattenLevel(m.everythingExpanded())

	for _, item := range allItems {
		if item.IsSectionHeader {
			continue
		}
		if strings.Contains(strings.ToLower(item.Name), query) {
			m.searchMatchIDs[item.ID] = true
			m.addSearchAncestors(item.ParentID, allItems)
		}
	}
}

// addSearchAncestors walks up the tree adding ancestor IDs and auto-expanding them.
func (m *Model) addSearchAncestors(parentID string, allItems []TreeItem) {
	if parentID == "" {
		return
	}
	if m.searchAncIDs[parentID] {
		return
	}
	m.searchAncIDs[parentID] = true
	m.expandedState[parentID] = true

	for _, item := range allItems {
		if item.ID == parentID {
			m.addSearchAncestors(item.ParentID, allItems)
			return
		}
	}
}

// reload discards the working set and re-reads storage. Outstanding deferred
// completions refer to the old tree and are dropped.
func (m *Model) reload() {
	m.pending.Reset()
	if err := m.store.Reload(); err != nil {
		m.fail("Load", err)
	}
	m.refresh()
}

// refresh re-reads the working set, re-projects the drill-down stack from the
// live tree and rebuilds the visible rows.
func (m *Model) refresh() {
	all, err := m.store.FetchAll(store.SortByDeadline)
	if err != nil {
		m.fail("Load", err)
		return
	}
	m.allGoals = all
	m.reprojectStack()
	m.rebuildVisible()
}

// reprojectStack rebuilds every level from the live tree, cutting the stack
// at the first level whose node is gone.
func (m *Model) reprojectStack() {
	for i, v := range m.stack {
		g := m.findGoal(v.GoalID)
		if g == nil {
			m.stack = m.stack[:i]
			return
		}
		fresh, ok := m.engine.Reproject(g, v)
		if !ok {
			m.stack = m.stack[:i]
			return
		}
		m.stack[i] = fresh
	}
}

func (m *Model) flattenLevel(expanded map[string]bool) []TreeItem {
	if len(m.stack) == 0 {
		return FlattenWithStatusGroups(m.engine, m.allGoals, m.engine.Now(), expanded)
	}
	return FlattenTasks(m.stack[len(m.stack)-1].Tasks, expanded)
}

func (m *Model) rebuildVisible() {
	m.visibleItems = m.flattenLevel(m.expandedState)

	// Apply search filter if active
	if m.searchQuery != "" && (m.searchMatchIDs != nil || m.searchAncIDs != nil) {
		m.visibleItems = FilterVisibleItems(m.visibleItems, m.searchMatchIDs, m.searchAncIDs)
	}

	// Clamp cursor
	if m.cursor >= len(m.visibleItems) {
		m.cursor = len(m.visibleItems) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	// Skip section headers
	if m.cursor < len(m.visibleItems) && m.visibleItems[m.cursor].IsSectionHeader {
		for i := m.cursor; i < len(m.visibleItems); i++ {
			if !m.visibleItems[i].IsSectionHeader {
				m.cursor = i
				return
			}
		}
	}
}

func (m *Model) everythingExpanded() map[string]bool {
	expanded := make(map[string]bool)
	for _, g := range m.allGoals {
		expanded[g.ID] = true
		g.Walk(func(t *goals.Task) bool {
			expanded[t.ID] = true
			return true
		})
	}
	return expanded
}

func (m *Model) expandAll() {
	m.expandedState = m.everythingExpanded()
	m.rebuildVisible()
}

// getGlamourRenderer returns a cached glamour renderer, creating one if needed
// or if the width changed.
func (m *Model) getGlamourRenderer(width int) *glamour.TermRenderer {
	if m.glamourRenderer != nil && m.glamourWidth == width {
		return m.glamourRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", "error", err)
		return nil
	}
	m.glamourRenderer = r
	m.glamourWidth = width
	return r
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusTimeout = time.Now().Add(3 * time.Second)
}

func (m *Model) fail(action string, err error) {
	m.logger.Error(strings.ToLower(action)+" failed", "error", err)
	m.setStatus(action + " failed: " + err.Error())
}

func (m Model) formatDay(d *time.Time) string {
	if d == nil {
		return "never"
	}
	return d.In(m.engine.Calendar().Location()).Format("Mon Jan 2")
}

func hardDeadline(n goals.Node) *time.Time {
	switch n := n.(type) {
	case *goals.Goal:
		return n.HardDeadline
	case *goals.Task:
		return n.HardDeadline
	}
	return nil
}

// goalFile is the path of g's markdown file when the store keeps one.
func (m Model) goalFile(g *goals.Goal) string {
	if fs, ok := m.store.(*store.FileStore); ok {
		return fs.GoalPath(g.ID)
	}
	return ""
}

func (m *Model) openEditor(g *goals.Goal) tea.Cmd {
	path := m.goalFile(g)
	if path == "" {
		m.setStatus("Only the file backend keeps editable goal files")
		return nil
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}

	// The file must be on disk before the editor opens it
	m.commit()
	c := exec.Command(editor, path)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return EditorFinishedMsg{Err: err}
	})
}

func (m *Model) doSync() tea.Cmd {
	if m.git == nil {
		m.setStatus("Sync is not configured")
		return nil
	}
	git := m.git
	m.setStatus("Syncing…")
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := git.Sync(ctx); err != nil {
			return SyncDoneMsg{Err: fmt.Errorf("git sync: %w", err)}
		}
		return SyncDoneMsg{}
	}
}
