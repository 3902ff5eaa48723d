package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/forest"
	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/loader"
	"github.com/vanderheijden86/lazytree/pkg/selection"
	"github.com/vanderheijden86/lazytree/pkg/watcher"
)

// maxSettlePasses bounds the recompute loop after a state change. Each pass
// can only turn anchors into loading rows, so two passes normally suffice.
const maxSettlePasses = 4

var errWorkerStopped = errors.New("page worker is not running")

// DirChangedMsg reports that the entries of a watched directory changed.
type DirChangedMsg struct {
	Dir string
}

// WatchDirCmd waits for the next directory change.
func WatchDirCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		if w == nil {
			return nil
		}
		return DirChangedMsg{Dir: <-w.Events()}
	}
}

// LocalDirs maps key-paths to directories on disk. Directory sources
// implement it; the model only watches sources that do.
type LocalDirs interface {
	LocalPath(forest.KeyPath) string
	KeyPathFor(dir string) (forest.KeyPath, bool)
}

// session is the tree state owned by the model: the loaded forest, which
// nodes are expanded and what is selected. Engine callbacks write here and
// set dirty; the model then recomputes until nothing changes.
type session struct {
	store    *loader.Store
	source   loader.Source
	worker   *PageWorker
	watcher  *watcher.Watcher
	dirs     LocalDirs
	mode     selection.Mode[*forest.Node]
	expanded map[string]bool

	expandedByDefault bool
	selection         selection.Selection
	onSelection       func(selection.Selection)
	pending           forest.KeyPath
	dirty             bool
}

func (s *session) props() lazytree.Props[*forest.Node] {
	return lazytree.Props[*forest.Node]{
		Forest: s.store.Tree(),
		IsLeaf: func(n *forest.Node) (bool, bool) {
			return n.Leaf, true
		},
		IsExpanded: func(n *forest.Node) (bool, bool) {
			v, ok := s.expanded[n.Path().String()]
			return v, ok
		},
		ChildrenStatus:        s.store.Status,
		RequestMore:           s.requestMore,
		OnExpandedOrCollapsed: s.setExpanded,
		Mode:                  s.mode,
		Selection:             s.selection,
		OnSelectionChanged: func(next selection.Selection) {
			s.selection = next
			s.dirty = true
			if s.onSelection != nil {
				s.onSelection(next)
			}
		},
		ExpandedByDefault: s.expandedByDefault,
	}
}

func (s *session) requestMore(n *forest.Node) {
	req, ok := s.store.BeginLoad(n)
	if !ok {
		return
	}
	s.dirty = true
	if !s.worker.Submit(req) {
		_ = s.store.Apply(loader.Result{Request: req, Err: errWorkerStopped})
	}
}

func (s *session) isExpanded(n *forest.Node) bool {
	if v, ok := s.expanded[n.Path().String()]; ok {
		return v
	}
	return s.expandedByDefault
}

func (s *session) setExpanded(n *forest.Node, expanded bool) {
	if n == nil || n.Path() == nil {
		return
	}
	s.expanded[n.Path().String()] = expanded
	s.dirty = true
	if s.watcher == nil || s.dirs == nil || n.Leaf {
		return
	}
	dir := s.dirs.LocalPath(n.Path())
	if !expanded {
		s.watcher.Remove(dir)
		return
	}
	if err := s.watcher.Add(dir); err != nil {
		debug.Log("ui: not watching %s: %v", dir, err)
	}
}

// Options configures NewModel.
type Options struct {
	Source loader.Source
	// Title is shown in the header and labels the root; defaults to the
	// source name.
	Title string

	PageSize      int
	MaxConcurrent int
	MaxRetries    int

	// Mode defaults to MultipleFullSubtrees.
	Mode              selection.Mode[*forest.Node]
	Selection         selection.Selection
	Tree              lazytree.Options
	IndentWidth       int
	ExpandedByDefault bool

	// Watcher, if set, is told about expanded directories of sources that
	// implement LocalDirs. The caller starts and stops it.
	Watcher *watcher.Watcher

	// InitialPath is scrolled to once its ancestors have loaded.
	InitialPath forest.KeyPath

	// OnSelectionChanged is called after every accepted checkbox click.
	OnSelectionChanged func(selection.Selection)

	// Plain disables styling.
	Plain bool
}

// Model is the Bubble Tea model of the tree browser.
type Model struct {
	s       *session
	tree    *TreeView
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	theme   Theme

	prompt   GotoPrompt
	showGoto bool

	width  int
	height int

	statusMsg     string
	statusIsError bool
	quitting      bool

	copyToClipboard func(string) error
}

// NewModel builds the model, starts its page worker and requests the first
// page of the root's children.
func NewModel(opts Options) (Model, error) {
	if opts.Source == nil {
		return Model{}, fmt.Errorf("model needs a source")
	}
	if opts.Mode == nil {
		opts.Mode = selection.MultipleFullSubtrees[*forest.Node]{}
	}
	if opts.IndentWidth <= 0 {
		opts.IndentWidth = 2
	}
	title := opts.Title
	if title == "" {
		title = opts.Source.Name()
	}

	worker, err := NewPageWorker(WorkerConfig{
		Source:        opts.Source,
		MaxConcurrent: opts.MaxConcurrent,
		MaxRetries:    opts.MaxRetries,
	})
	if err != nil {
		return Model{}, err
	}
	if err := worker.Start(); err != nil {
		return Model{}, err
	}

	s := &session{
		store:             loader.NewStore(forest.NewTree(title), opts.PageSize),
		source:            opts.Source,
		worker:            worker,
		watcher:           opts.Watcher,
		mode:              opts.Mode,
		expanded:          make(map[string]bool),
		expandedByDefault: opts.ExpandedByDefault,
		selection:         opts.Selection,
		onSelection:       opts.OnSelectionChanged,
	}
	if !opts.InitialPath.IsRoot() {
		s.pending = opts.InitialPath
	}
	if dirs, ok := opts.Source.(LocalDirs); ok && opts.Watcher != nil {
		s.dirs = dirs
		if err := opts.Watcher.Add(dirs.LocalPath(forest.KeyPath{})); err != nil {
			debug.Log("ui: not watching root: %v", err)
		}
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	engine := lazytree.New(s.props(), opts.Tree)
	tv := NewTreeView(engine, theme, opts.IndentWidth)
	tv.SetTitle(title)
	tv.SetPlain(opts.Plain)

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = theme.SpinnerStyle

	m := Model{
		s:               s,
		tree:            tv,
		keys:            DefaultKeyMap(),
		help:            help.New(),
		spinner:         sp,
		theme:           theme,
		copyToClipboard: clipboard.WriteAll,
	}
	m.settle()
	return m, nil
}

// Pending returns the go-to path still waiting for its ancestors to load.
func (m Model) Pending() forest.KeyPath { return m.s.pending }

// Init starts the spinner and the message pumps.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		WaitForPageCmd(m.s.worker),
		m.spinner.Tick,
	}
	if m.s.watcher != nil && m.s.dirs != nil {
		cmds = append(cmds, WatchDirCmd(m.s.watcher))
	}
	return tea.Batch(cmds...)
}

// settle recomputes the rows and reports the rendered range until no
// callback changes the session any more.
func (m *Model) settle() {
	for i := 0; i < maxSettlePasses; i++ {
		m.s.dirty = false
		m.tree.Engine().SetProps(m.s.props())
		m.tree.Sync()
		if !m.s.dirty {
			return
		}
	}
	debug.Log("ui: rows still changing after %d passes", maxSettlePasses)
}

func (m *Model) settleIfDirty() {
	if m.s.dirty {
		m.settle()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.showGoto {
		return m.update(msg)
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	if _, isKey := msg.(tea.KeyMsg); isKey {
		switch {
		case m.prompt.IsCancelRequested():
			m.closeGoto()
		case m.prompt.IsSubmitRequested():
			raw := m.prompt.Value()
			m.closeGoto()
			m.gotoPath(raw)
		}
		return m, cmd
	}
	// The prompt sees every message so its cursor keeps blinking.
	next, nextCmd := m.update(msg)
	return next, tea.Batch(cmd, nextCmd)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.settle()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		m.tree.SetSpinner(m.spinner.View())
		return m, cmd

	case PageLoadedMsg:
		m.applyResult(msg.Result)
		return m, WaitForPageCmd(m.s.worker)

	case PageFailedMsg:
		m.applyResult(msg.Result)
		return m, WaitForPageCmd(m.s.worker)

	case DirChangedMsg:
		m.invalidateDir(msg.Dir)
		return m, WatchDirCmd(m.s.watcher)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.Top):
		m.tree.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.tree.JumpToBottom()
	case key.Matches(msg, m.keys.Toggle):
		m.tree.Toggle()
	case key.Matches(msg, m.keys.Expand):
		m.tree.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Collapse):
		m.tree.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.Parent):
		m.tree.JumpToParent()
	case key.Matches(msg, m.keys.Check):
		m.tree.ToggleCheck()
	case key.Matches(msg, m.keys.Goto):
		m.prompt = NewGotoPrompt(m.theme)
		m.showGoto = true
		m.resize()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Yank):
		m.yank()
	case key.Matches(msg, m.keys.ExpandAll):
		m.setAllExpanded(true)
	case key.Matches(msg, m.keys.CollapseAll):
		m.setAllExpanded(false)
	case key.Matches(msg, m.keys.Reload):
		m.reload()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		m.tree.Sync()
	}
	m.settleIfDirty()
	return m, nil
}

func (m *Model) applyResult(res loader.Result) {
	err := m.s.store.Apply(res)
	switch {
	case errors.Is(err, loader.ErrStale):
		debug.Log("ui: dropped %v", err)
	case err != nil:
		m.setStatus(err.Error(), true)
	}
	m.settle()
	if m.s.pending != nil {
		m.followPending()
		m.settleIfDirty()
	}
}

func (m *Model) invalidateDir(dir string) {
	if m.s.dirs == nil {
		return
	}
	p, ok := m.s.dirs.KeyPathFor(dir)
	if !ok {
		return
	}
	n, ok := m.s.store.Tree().FromKeyPath(p)
	if !ok {
		return
	}
	debug.Log("ui: %s changed, reloading %q", dir, p.String())
	m.s.store.Invalidate(n)
	m.settle()
}

func (m *Model) reload() {
	n := m.tree.SelectedNode()
	switch {
	case n == nil:
		n = m.s.store.Tree().Root()
	case n.Leaf || !m.s.isExpanded(n):
		if p := n.Parent(); p != nil {
			n = p
		}
	}
	m.s.store.Invalidate(n)
	label := n.Path().String()
	if label == "" {
		label = "/"
	}
	m.setStatus("Reloading "+label, false)
	m.settle()
}

// setAllExpanded expands or collapses every loaded inner node.
func (m *Model) setAllExpanded(expanded bool) {
	count := 0
	m.s.store.Tree().Walk(func(n *forest.Node, _ int) bool {
		if !n.Leaf && m.s.isExpanded(n) != expanded {
			m.s.setExpanded(n, expanded)
			count++
		}
		return true
	})
	if expanded {
		m.setStatus(fmt.Sprintf("Expanded %d nodes", count), false)
	} else {
		m.setStatus(fmt.Sprintf("Collapsed %d nodes", count), false)
	}
	m.settle()
}

// yank copies the selected key-paths, or the path under the cursor when
// nothing is selected.
func (m *Model) yank() {
	var lines []string
	for _, p := range m.s.selection.Terminals() {
		lines = append(lines, p.String())
	}
	if len(lines) == 0 {
		if n := m.tree.SelectedNode(); n != nil {
			lines = append(lines, n.Path().String())
		}
	}
	if len(lines) == 0 {
		m.setStatus("Nothing to copy", true)
		return
	}
	if err := m.copyToClipboard(strings.Join(lines, "\n")); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %d path(s)", len(lines)), false)
}

// gotoPath scrolls to the node at raw, loading and expanding its ancestors
// on the way.
func (m *Model) gotoPath(raw string) {
	p, err := forest.ParseKeyPath(raw)
	if err != nil {
		m.setStatus(fmt.Sprintf("Invalid path %q: %v", raw, err), true)
		return
	}
	if p.IsRoot() {
		m.s.pending = nil
		m.tree.JumpToTop()
		m.settleIfDirty()
		return
	}
	m.setStatus("", false)
	m.s.pending = p
	m.followPending()
	m.settleIfDirty()
}

// followPending moves toward the pending go-to path as far as the loaded
// tree allows. Missing children are requested directly rather than waiting
// for the viewport to reach an anchor.
func (m *Model) followPending() {
	p := m.s.pending
	if p == nil {
		return
	}
	tree := m.s.store.Tree()
	parent := tree.Root()
	for i := range p {
		node, ok := tree.FromKeyPath(p[:i+1])
		if !ok {
			st := m.s.store.Status(parent)
			switch {
			case st.Loading:
				m.setStatus("Looking for "+p.String()+"…", false)
			case st.HasMoreItems:
				m.s.requestMore(parent)
				m.setStatus("Looking for "+p.String()+"…", false)
			default:
				m.s.pending = nil
				m.setStatus(fmt.Sprintf("%s not found", p.String()), true)
			}
			return
		}
		if i < len(p)-1 && !m.s.isExpanded(node) {
			m.s.setExpanded(node, true)
		}
		parent = node
	}

	m.s.pending = nil
	m.settleIfDirty()
	if m.tree.Engine().ScrollToPath(p) {
		m.setStatus("", false)
	}
}

func (m *Model) closeGoto() {
	m.showGoto = false
	m.resize()
	m.tree.Sync()
}

func (m *Model) setStatus(msg string, isError bool) {
	m.statusMsg = msg
	m.statusIsError = isError
}

// resize gives the tree view whatever the footer leaves.
func (m *Model) resize() {
	if m.height <= 0 {
		return
	}
	h := m.height - m.footerHeight()
	if h < 2 {
		h = 2
	}
	m.tree.SetSize(m.width, h)
}

func (m Model) footerHeight() int {
	h := 1 + lipgloss.Height(m.help.View(m.keys))
	if m.showGoto {
		h++
	}
	return h
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	body := m.tree.View()
	if m.height > 0 {
		h := max(2, m.height-m.footerHeight())
		body = lipgloss.NewStyle().Height(h).MaxHeight(h).Render(body)
	}
	parts := []string{body}
	if m.showGoto {
		parts = append(parts, m.prompt.View())
	}
	parts = append(parts, m.renderStatusBar(), m.help.View(m.keys))
	return strings.Join(parts, "\n")
}

func (m Model) renderStatusBar() string {
	loaded, loading, failed := m.s.store.Stats()
	left := fmt.Sprintf(" %d loaded", loaded)
	if loading > 0 {
		left += fmt.Sprintf(" · %s %d loading", m.spinner.View(), loading)
	}
	if failed > 0 {
		left += fmt.Sprintf(" · %d failed", failed)
	}
	if !m.tree.Engine().Options().HideCheckboxes {
		left += fmt.Sprintf(" · %d selected", m.s.selection.Len())
	}
	line := left
	if m.statusMsg != "" {
		line += " │ " + m.statusMsg
	}
	if m.width > 0 {
		line = runewidth.Truncate(line, m.width, "…")
	}
	style := m.theme.StatusBar
	if m.statusIsError {
		style = m.theme.ErrorText.Background(m.theme.StatusBar.GetBackground())
	}
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(line)
}

// Tree returns the tree view.
func (m Model) Tree() *TreeView { return m.tree }

// Store returns the page store behind the tree.
func (m Model) Store() *loader.Store { return m.s.store }

// Worker returns the page worker.
func (m Model) Worker() *PageWorker { return m.s.worker }

// Selection returns the current selection.
func (m Model) Selection() selection.Selection { return m.s.selection }

// Status returns the status line message and whether it is an error.
func (m Model) Status() (string, bool) { return m.statusMsg, m.statusIsError }

// ShowingGoto reports whether the go-to prompt is open.
func (m Model) ShowingGoto() bool { return m.showGoto }

// SetClipboard replaces the clipboard writer, for tests and headless use.
func (m *Model) SetClipboard(fn func(string) error) { m.copyToClipboard = fn }

// Close stops the page worker. The watcher belongs to the caller.
func (m Model) Close() {
	m.s.worker.Stop()
}
