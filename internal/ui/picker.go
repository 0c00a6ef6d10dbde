package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vietdv277/nimbus/pkg/types"
)

const (
	listHeight = 8
	minWidth   = 60
	maxWidth   = 120
)

// ErrCancelled is returned when the user leaves the picker without a choice
var ErrCancelled = errors.New("selection cancelled")

// Item is one selectable row
type Item struct {
	Key     string   // returned on selection
	Columns []string // rendered left to right
	Current bool     // marked with an asterisk
}

func (it Item) matches(query string) bool {
	if strings.Contains(strings.ToLower(it.Key), query) {
		return true
	}
	for _, c := range it.Columns {
		if strings.Contains(strings.ToLower(c), query) {
			return true
		}
	}
	return false
}

// Picker is a searchable single-choice list
type Picker struct {
	title     string
	items     []Item
	filtered  []Item
	cursor    int
	offset    int
	search    string
	selected  *Item
	cancelled bool
	width     int
}

// NewPicker creates a picker with the cursor on the current item, if any
func NewPicker(title string, items []Item) Picker {
	p := Picker{title: title, items: items, filtered: items, width: 80}
	for i, it := range items {
		if it.Current {
			p.cursor = i
			if i >= listHeight {
				p.offset = i - listHeight + 1
			}
			break
		}
	}
	return p
}

// Init implements tea.Model
func (p Picker) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		return p, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			p.cancelled = true
			return p, tea.Quit

		case tea.KeyEnter:
			if len(p.filtered) > 0 {
				it := p.filtered[p.cursor]
				p.selected = &it
				return p, tea.Quit
			}

		case tea.KeyUp:
			if p.cursor > 0 {
				p.cursor--
				if p.cursor < p.offset {
					p.offset = p.cursor
				}
			}

		case tea.KeyDown:
			if p.cursor < len(p.filtered)-1 {
				p.cursor++
				if p.cursor >= p.offset+listHeight {
					p.offset = p.cursor - listHeight + 1
				}
			}

		case tea.KeyBackspace:
			if len(p.search) > 0 {
				p.search = p.search[:len(p.search)-1]
				p.filter()
			}

		case tea.KeyRunes:
			p.search += string(msg.Runes)
			p.filter()
		}
	}
	return p, nil
}

func (p *Picker) filter() {
	if p.search == "" {
		p.filtered = p.items
	} else {
		query := strings.ToLower(p.search)
		p.filtered = nil
		for _, it := range p.items {
			if it.matches(query) {
				p.filtered = append(p.filtered, it)
			}
		}
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = max(len(p.filtered)-1, 0)
	}
	p.offset = 0
}

// View implements tea.Model
func (p Picker) View() string {
	if p.selected != nil || p.cancelled {
		return ""
	}

	width := min(max(p.width-2, minWidth), maxWidth)

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(p.title) + "\n")
	sb.WriteString(BorderStyle.Render(TopLeft+strings.Repeat(Horizontal, width)+TopRight) + "\n")

	search := HintStyle.Render(padRight(" > "+p.search+"█", width))
	sb.WriteString(BorderStyle.Render(Vertical) + search + BorderStyle.Render(Vertical) + "\n")
	sb.WriteString(BorderStyle.Render(LeftT+strings.Repeat(Horizontal, width)+RightT) + "\n")

	end := min(p.offset+listHeight, len(p.filtered))
	for i := p.offset; i < end; i++ {
		it := p.filtered[i]
		prefix := "  "
		if i == p.cursor {
			prefix = "> "
		}
		mark := " "
		if it.Current {
			mark = "*"
		}
		line := padRight(prefix+mark+" "+strings.Join(it.Columns, "  "), width)
		if i == p.cursor {
			line = NameStyle.Render(line)
		} else {
			line = ValueStyle.Render(line)
		}
		sb.WriteString(BorderStyle.Render(Vertical) + line + BorderStyle.Render(Vertical) + "\n")
	}
	if len(p.filtered) == 0 {
		sb.WriteString(BorderStyle.Render(Vertical) + MutedStyle.Render(padRight("  no matches", width)) + BorderStyle.Render(Vertical) + "\n")
	}

	sb.WriteString(BorderStyle.Render(BottomLeft+strings.Repeat(Horizontal, width)+BottomRight) + "\n")
	sb.WriteString(HintStyle.Render(fmt.Sprintf("  %d/%d  ↑/↓ move  enter select  esc cancel", len(p.filtered), len(p.items))) + "\n")
	return sb.String()
}

// Selected returns the chosen item key
func (p Picker) Selected() (string, bool) {
	if p.selected == nil {
		return "", false
	}
	return p.selected.Key, true
}

// Pick runs the picker on the terminal and returns the chosen key
func Pick(title string, items []Item) (string, error) {
	if len(items) == 0 {
		return "", errors.New("nothing to select")
	}

	final, err := tea.NewProgram(NewPicker(title, items)).Run()
	if err != nil {
		return "", fmt.Errorf("failed to run selector: %w", err)
	}

	key, ok := final.(Picker).Selected()
	if !ok {
		return "", ErrCancelled
	}
	return key, nil
}

// InstanceItems converts instances to picker rows keyed by instance name
func InstanceItems(instances []types.Instance) []Item {
	items := make([]Item, 0, len(instances))
	for _, inst := range instances {
		glyph, _ := stateIndicator(string(inst.State))
		items = append(items, Item{
			Key:     inst.Name,
			Columns: []string{padRight(inst.ID, 20), padRight(formatOptional(inst.Address()), 15), glyph + " " + padRight(string(inst.State), 9), inst.Name},
		})
	}
	return items
}

// ContextItems converts context names to picker rows
func ContextItems(names []string, providers map[string]string, current string) []Item {
	items := make([]Item, 0, len(names))
	for _, name := range names {
		items = append(items, Item{
			Key:     name,
			Columns: []string{padRight(name, 24), providers[name]},
			Current: name == current,
		})
	}
	return items
}
