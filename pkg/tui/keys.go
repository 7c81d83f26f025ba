package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// KeyMap holds the browser's key bindings. It satisfies help.KeyMap so the
// footer and the help modal are generated from the bindings themselves.
type KeyMap struct {
	// Navigation
	Up, Down, Left, Right key.Binding
	Enter, Back, Tab      key.Binding
	Search, ToggleExpand  key.Binding

	// Completion
	Space, CompleteAll key.Binding

	// Editing
	Add, AddTop, Rename, Deadline, Cadence, Delete key.Binding
	InlineEdit, ExternalEdit                       key.Binding

	// Storage
	Reload, Sync key.Binding

	Help, Quit key.Binding
}

var _ help.KeyMap = KeyMap{}

func bind(helpKey, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:           bind("↑/k", "up", "up", "k"),
		Down:         bind("↓/j", "down", "down", "j"),
		Left:         bind("←/h", "collapse", "left", "h"),
		Right:        bind("→/l", "expand", "right", "l"),
		Enter:        bind("enter", "open as a level", "enter"),
		Back:         bind("⌫/u", "up a level", "backspace", "u"),
		Tab:          bind("tab", "switch pane", "tab"),
		Search:       bind("/", "search", "/"),
		ToggleExpand: bind("C", "expand/collapse all", "C"),

		Space:       bind("space", "toggle done", " "),
		CompleteAll: bind("X", "complete subtree", "X"),

		Add:          bind("a", "add under", "a"),
		AddTop:       bind("A", "add at level", "A"),
		Rename:       bind("r", "rename", "r"),
		Deadline:     bind("D", "deadline YYYY-MM-DD", "D"),
		Cadence:      bind("c", "cycle cadence", "c"),
		Delete:       bind("d", "delete", "d"),
		InlineEdit:   bind("e", "edit motivation", "e"),
		ExternalEdit: bind("E", "$EDITOR", "E"),

		Reload: bind("R", "reload", "R"),
		Sync:   bind("s", "git sync", "s"),

		Help: bind("?", "help", "?"),
		Quit: bind("q", "quit", "q", "ctrl+c"),
	}
}

// ShortHelp is the footer line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.Space, k.Add, k.Deadline, k.Cadence, k.Search, k.Help}
}

// FullHelp is the help modal, one column per group.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Enter, k.Back, k.Tab, k.Search, k.ToggleExpand},
		{k.Space, k.CompleteAll, k.Add, k.AddTop, k.Rename, k.Deadline, k.Cadence, k.Delete},
		{k.InlineEdit, k.ExternalEdit, k.Reload, k.Sync, k.Help, k.Quit},
	}
}

// newHelp returns a help renderer in the browser's palette.
func newHelp() help.Model {
	h := help.New()
	h.ShortSeparator = "  "
	h.FullSeparator = "    "
	keyStyle := lipgloss.NewStyle().Foreground(ColorBlue)
	descStyle := lipgloss.NewStyle().Foreground(ColorGray)
	h.Styles.ShortKey = keyStyle
	h.Styles.ShortDesc = descStyle
	h.Styles.FullKey = keyStyle
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(ColorOffWhite)
	h.Styles.ShortSeparator = descStyle
	h.Styles.FullSeparator = descStyle
	return h
}
