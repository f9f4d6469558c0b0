package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/csoundtui/internal/library"
)

// LibBrowserKeyMap defines key bindings for the library browser.
type LibBrowserKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	GoToTop    key.Binding
	GoToBottom key.Binding
	Enter      key.Binding // Expand/collapse or play
	Back       key.Binding // Collapse or go to parent
	Rescan     key.Binding
}

// DefaultLibBrowserKeyMap returns the default library browser key bindings.
func DefaultLibBrowserKeyMap() LibBrowserKeyMap {
	return LibBrowserKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "page down"),
		),
		GoToTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "top"),
		),
		GoToBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", "l", "right"),
			key.WithHelp("enter", "expand/play"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "h", "left"),
			key.WithHelp("backspace", "collapse"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
	}
}

// NodeType represents the type of tree node.
type NodeType int

const (
	NodeGroup NodeType = iota
	NodePiece
)

// TreeNode represents a node in the library tree.
type TreeNode struct {
	Type     NodeType
	Name     string
	Piece    *library.Piece // For pieces
	Children []*TreeNode
	Expanded bool
	Parent   *TreeNode
}

// LibBrowser is a tree-based library browser component.
type LibBrowser struct {
	// Library data
	lib  *library.Library
	root []*TreeNode // Top-level pieces and groups

	// Flat list for navigation
	flatList []*TreeNode

	// Selection state
	selected int
	min      int
	max      int

	// Dimensions
	width  int
	height int

	// State
	focused bool
	keyMap  LibBrowserKeyMap
	styles  LibBrowserStyles

	// Status
	scanning   bool
	pieceCount int
	scanErr    error
}

// LibBrowserStyles contains styles for the library browser component.
type LibBrowserStyles struct {
	Cursor    lipgloss.Style
	Group     lipgloss.Style
	Piece     lipgloss.Style
	Kind      lipgloss.Style
	Selected  lipgloss.Style
	Muted     lipgloss.Style
	Expanded  string
	Collapsed string
}

// DefaultLibBrowserStyles returns the default library browser styles.
func DefaultLibBrowserStyles() LibBrowserStyles {
	return LibBrowserStyles{
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		Group: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true),
		Piece: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")),
		Kind: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#99CCFF")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#606060")),
		Expanded:  "[-]",
		Collapsed: "[+]",
	}
}

// LibBrowserScanCompleteMsg is sent when library scanning completes.
type LibBrowserScanCompleteMsg struct {
	PieceCount int
	Err        error
}

// LibPieceSelectedMsg is sent when a piece is chosen for playing.
type LibPieceSelectedMsg struct {
	Piece library.Piece
}

// NewLibBrowser creates a new library browser.
func NewLibBrowser(lib *library.Library) *LibBrowser {
	b := &LibBrowser{
		lib:      lib,
		root:     make([]*TreeNode, 0),
		flatList: make([]*TreeNode, 0),
		selected: 0,
		min:      0,
		max:      10,
		width:    30,
		height:   10,
		focused:  false,
		keyMap:   DefaultLibBrowserKeyMap(),
		styles:   DefaultLibBrowserStyles(),
		scanning: false,
	}
	return b
}

// Init initializes the library browser and starts scanning.
func (b *LibBrowser) Init() tea.Cmd {
	return b.Scan()
}

// Scan returns a command that scans the library.
func (b *LibBrowser) Scan() tea.Cmd {
	b.scanning = true
	return func() tea.Msg {
		count, err := b.lib.Scan()
		return LibBrowserScanCompleteMsg{PieceCount: count, Err: err}
	}
}

// buildTree builds the tree structure from the library. Pieces at the
// library root are listed first, then one node per directory. Expanded
// groups stay expanded across rescans.
func (b *LibBrowser) buildTree() {
	expanded := make(map[string]bool)
	for _, node := range b.root {
		if node.Type == NodeGroup && node.Expanded {
			expanded[node.Name] = true
		}
	}

	b.root = make([]*TreeNode, 0)
	for _, group := range b.lib.Groups() {
		pieces := b.lib.Pieces(group)
		if group == "" {
			for i := range pieces {
				b.root = append(b.root, &TreeNode{
					Type:  NodePiece,
					Name:  pieces[i].Name,
					Piece: &pieces[i],
				})
			}
			continue
		}

		groupNode := &TreeNode{
			Type:     NodeGroup,
			Name:     group,
			Children: make([]*TreeNode, 0, len(pieces)),
			Expanded: expanded[group],
		}
		for i := range pieces {
			groupNode.Children = append(groupNode.Children, &TreeNode{
				Type:   NodePiece,
				Name:   pieces[i].Name,
				Piece:  &pieces[i],
				Parent: groupNode,
			})
		}
		b.root = append(b.root, groupNode)
	}

	b.rebuildFlatList()
}

// rebuildFlatList rebuilds the flat list from the tree.
func (b *LibBrowser) rebuildFlatList() {
	b.flatList = make([]*TreeNode, 0)
	for _, node := range b.root {
		b.addToFlatList(node)
	}

	// Ensure selected index is valid
	if b.selected >= len(b.flatList) {
		b.selected = len(b.flatList) - 1
	}
	if b.selected < 0 {
		b.selected = 0
	}

	b.updateViewport()
}

// addToFlatList adds a node and its visible children to the flat list.
func (b *LibBrowser) addToFlatList(node *TreeNode) {
	b.flatList = append(b.flatList, node)
	if node.Expanded {
		for _, child := range node.Children {
			b.addToFlatList(child)
		}
	}
}

// Update handles messages and updates the browser state.
func (b *LibBrowser) Update(msg tea.Msg) (*LibBrowser, tea.Cmd) {
	switch msg := msg.(type) {
	case LibBrowserScanCompleteMsg:
		b.scanning = false
		b.scanErr = msg.Err
		if msg.Err == nil {
			b.pieceCount = msg.PieceCount
			b.buildTree()
		}
		return b, nil

	case tea.KeyMsg:
		if !b.focused {
			return b, nil
		}
		return b.handleKeyMsg(msg)
	}

	return b, nil
}

// handleKeyMsg handles keyboard input when focused.
func (b *LibBrowser) handleKeyMsg(msg tea.KeyMsg) (*LibBrowser, tea.Cmd) {
	switch {
	case key.Matches(msg, b.keyMap.Up):
		b.moveUp()
		return b, nil

	case key.Matches(msg, b.keyMap.Down):
		b.moveDown()
		return b, nil

	case key.Matches(msg, b.keyMap.PageUp):
		b.pageUp()
		return b, nil

	case key.Matches(msg, b.keyMap.PageDown):
		b.pageDown()
		return b, nil

	case key.Matches(msg, b.keyMap.GoToTop):
		b.goToTop()
		return b, nil

	case key.Matches(msg, b.keyMap.GoToBottom):
		b.goToBottom()
		return b, nil

	case key.Matches(msg, b.keyMap.Enter):
		return b.handleEnter()

	case key.Matches(msg, b.keyMap.Back):
		return b.handleBack()

	case key.Matches(msg, b.keyMap.Rescan):
		return b, b.Scan()
	}

	return b, nil
}

// handleEnter handles Enter key - expand/collapse or play a piece.
func (b *LibBrowser) handleEnter() (*LibBrowser, tea.Cmd) {
	if len(b.flatList) == 0 {
		return b, nil
	}

	node := b.flatList[b.selected]

	switch node.Type {
	case NodeGroup:
		node.Expanded = !node.Expanded
		b.rebuildFlatList()
		return b, nil

	case NodePiece:
		if node.Piece != nil {
			piece := *node.Piece
			return b, func() tea.Msg {
				return LibPieceSelectedMsg{Piece: piece}
			}
		}
	}

	return b, nil
}

// handleBack handles Back key - collapse node or go to parent.
func (b *LibBrowser) handleBack() (*LibBrowser, tea.Cmd) {
	if len(b.flatList) == 0 {
		return b, nil
	}

	node := b.flatList[b.selected]

	// If expanded, collapse it
	if node.Expanded {
		node.Expanded = false
		b.rebuildFlatList()
		return b, nil
	}

	// Otherwise, go to parent
	if node.Parent != nil {
		for i, n := range b.flatList {
			if n == node.Parent {
				b.selected = i
				b.updateViewport()
				return b, nil
			}
		}
	}

	return b, nil
}

// moveUp moves selection up one item.
func (b *LibBrowser) moveUp() {
	if b.selected > 0 {
		b.selected--
		if b.selected < b.min {
			b.min--
			b.max--
		}
	}
}

// moveDown moves selection down one item.
func (b *LibBrowser) moveDown() {
	if b.selected < len(b.flatList)-1 {
		b.selected++
		if b.selected > b.max {
			b.min++
			b.max++
		}
	}
}

// pageUp moves selection up one page.
func (b *LibBrowser) pageUp() {
	visible := b.visibleCount()
	b.selected -= visible
	if b.selected < 0 {
		b.selected = 0
	}
	b.updateViewport()
}

// pageDown moves selection down one page.
func (b *LibBrowser) pageDown() {
	visible := b.visibleCount()
	b.selected += visible
	if b.selected >= len(b.flatList) {
		b.selected = len(b.flatList) - 1
	}
	b.updateViewport()
}

// goToTop moves selection to the first item.
func (b *LibBrowser) goToTop() {
	b.selected = 0
	b.updateViewport()
}

// goToBottom moves selection to the last item.
func (b *LibBrowser) goToBottom() {
	b.selected = len(b.flatList) - 1
	if b.selected < 0 {
		b.selected = 0
	}
	b.updateViewport()
}

// visibleCount returns the number of visible items.
func (b *LibBrowser) visibleCount() int {
	count := b.height - 1 // Account for status line
	if count < 1 {
		count = 1
	}
	return count
}

// updateViewport ensures the selected item is visible.
func (b *LibBrowser) updateViewport() {
	visible := b.visibleCount()
	if visible <= 0 {
		visible = 1
	}

	// Ensure max is properly set based on visible count
	if b.max < b.min+visible-1 {
		b.max = b.min + visible - 1
	}

	// Adjust viewport to keep selection visible
	if b.selected < b.min {
		b.min = b.selected
		b.max = b.min + visible - 1
	} else if b.selected > b.max {
		b.max = b.selected
		b.min = b.max - visible + 1
	}

	// Clamp values
	if b.min < 0 {
		b.min = 0
		b.max = b.min + visible - 1
	}
	if b.max >= len(b.flatList) {
		b.max = len(b.flatList) - 1
	}
	if b.max < b.min {
		b.max = b.min
	}
}

// getDepth returns the depth of a node in the tree.
func (b *LibBrowser) getDepth(node *TreeNode) int {
	depth := 0
	for p := node.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// View renders the library browser.
func (b *LibBrowser) View() string {
	var s strings.Builder

	// Show status line with library root for debugging
	if b.scanning {
		s.WriteString(b.styles.Muted.Render(fmt.Sprintf("Scanning %s...", b.lib.Root())))
		return s.String()
	}

	statusLine := fmt.Sprintf("%d pieces in %s", b.pieceCount, b.lib.Root())
	if b.scanErr != nil {
		statusLine = fmt.Sprintf("Scan failed: %s", b.scanErr)
	}
	s.WriteString(b.styles.Muted.Render(statusLine))
	s.WriteRune('\n')

	if len(b.flatList) == 0 {
		s.WriteString(b.styles.Muted.Render("No .csd or .orc files found"))
		return b.constrainToHeight(s.String())
	}

	// Render visible nodes
	for i := b.min; i <= b.max && i < len(b.flatList); i++ {
		node := b.flatList[i]
		isSelected := i == b.selected
		depth := b.getDepth(node)

		// Cursor (2 chars visible)
		cursorStr := "  "
		if isSelected {
			cursorStr = "> "
		}

		// Indent based on depth (2 chars per level)
		indentStr := strings.Repeat("  ", depth)

		var content, suffix string
		switch node.Type {
		case NodeGroup:
			marker := b.styles.Collapsed
			if node.Expanded {
				marker = b.styles.Expanded
			}
			content = fmt.Sprintf("%s %s/", marker, node.Name)
		case NodePiece:
			content = node.Name
			suffix = " " + node.Piece.Kind.String()
		}

		// Fit to width (cursor=2, indent=2*depth, padding=2)
		maxWidth := b.width - 2 - (2 * depth) - 2 - len(suffix)
		if maxWidth < 10 {
			maxWidth = 10
		}
		if len(content) > maxWidth {
			content = content[:maxWidth-3] + "..."
		}

		var styledContent string
		switch {
		case isSelected:
			styledContent = b.styles.Selected.Render(content)
		case node.Type == NodeGroup:
			styledContent = b.styles.Group.Render(content)
		default:
			styledContent = b.styles.Piece.Render(content)
		}
		if suffix != "" {
			styledContent += b.styles.Kind.Render(suffix)
		}

		// Build line with cursor styling
		var line string
		if isSelected {
			line = b.styles.Cursor.Render(cursorStr) + indentStr + styledContent
		} else {
			line = cursorStr + indentStr + styledContent
		}

		s.WriteString(line)
		s.WriteRune('\n')
	}

	return b.constrainToHeight(s.String())
}

// constrainToHeight ensures the rendered content fits within the browser's height.
func (b *LibBrowser) constrainToHeight(content string) string {
	if b.height <= 0 {
		return content
	}

	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")

	maxLines := b.height
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	// Pad with empty lines
	for len(lines) < maxLines {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// SetSize sets the browser dimensions.
func (b *LibBrowser) SetSize(width, height int) {
	b.width = width
	b.height = height
	b.max = b.min + b.visibleCount() - 1
	b.updateViewport()
}

// Focus sets the browser as focused.
func (b *LibBrowser) Focus() {
	b.focused = true
}

// Blur removes focus from the browser.
func (b *LibBrowser) Blur() {
	b.focused = false
}

// IsFocused returns whether the browser is focused.
func (b *LibBrowser) IsFocused() bool {
	return b.focused
}

// KeyMap returns the key map.
func (b *LibBrowser) KeyMap() LibBrowserKeyMap {
	return b.keyMap
}

// PieceCount returns the number of pieces found by the last scan.
func (b *LibBrowser) PieceCount() int {
	return b.pieceCount
}

// SelectedNode returns the currently selected node.
func (b *LibBrowser) SelectedNode() *TreeNode {
	if len(b.flatList) == 0 || b.selected < 0 || b.selected >= len(b.flatList) {
		return nil
	}
	return b.flatList[b.selected]
}
