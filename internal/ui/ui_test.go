package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/pkg/types"
)

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func feed(p Picker, msgs ...tea.Msg) Picker {
	var m tea.Model = p
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m.(Picker)
}

func TestPickerSelectsUnderCursor(t *testing.T) {
	items := []Item{{Key: "a"}, {Key: "b"}, {Key: "c"}}

	p := feed(NewPicker("pick", items), key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyUp), key(tea.KeyEnter))

	got, ok := p.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", got)
}

func TestPickerStartsOnCurrent(t *testing.T) {
	items := []Item{{Key: "a"}, {Key: "b", Current: true}}

	p := feed(NewPicker("pick", items), key(tea.KeyEnter))

	got, _ := p.Selected()
	assert.Equal(t, "b", got)
}

func TestPickerFilter(t *testing.T) {
	items := []Item{
		{Key: "web.example.com", Columns: []string{"i-1"}},
		{Key: "api.example.com", Columns: []string{"i-2"}},
	}

	p := feed(NewPicker("pick", items), runes("i-2"), key(tea.KeyEnter))
	got, _ := p.Selected()
	assert.Equal(t, "api.example.com", got)

	p = feed(NewPicker("pick", items), runes("zzz"), key(tea.KeyEnter))
	_, ok := p.Selected()
	assert.False(t, ok)
	assert.Contains(t, p.View(), "no matches")

	p = feed(NewPicker("pick", items), runes("apx"), key(tea.KeyBackspace), key(tea.KeyBackspace), key(tea.KeyEnter))
	got, _ = p.Selected()
	assert.Equal(t, "web.example.com", got)
}

func TestPickerCancel(t *testing.T) {
	p := feed(NewPicker("pick", []Item{{Key: "a"}}), key(tea.KeyEsc))

	_, ok := p.Selected()
	assert.False(t, ok)
	assert.Empty(t, p.View())
}

func TestContextItemsMarksCurrent(t *testing.T) {
	items := ContextItems([]string{"dev", "prod"}, map[string]string{"dev": "aws", "prod": "gcp"}, "prod")

	require.Len(t, items, 2)
	assert.False(t, items[0].Current)
	assert.True(t, items[1].Current)
	assert.Equal(t, "prod", items[1].Key)
}

func TestRenderInstanceTable(t *testing.T) {
	out := RenderInstanceTable([]types.Instance{
		{ID: "i-1", Name: "web.example.com", State: types.InstanceStateRunning, PublicIP: "1.2.3.4", Type: "t3.small", Zone: "us-east-1a"},
		{ID: "i-2", Name: "api.example.com", State: types.InstanceStateStopped, PrivateIP: "10.0.0.2"},
	})

	assert.Contains(t, out, "web.example.com")
	assert.Contains(t, out, "1.2.3.4")
	assert.Contains(t, out, "10.0.0.2")
	assert.Contains(t, out, "2 instances")
	assert.Contains(t, out, "1 running")
	assert.Contains(t, out, "1 stopped")
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(&deploy.Report{
		RunID:    "run-1",
		Branch:   deploy.BranchUpdate,
		Instance: &types.Instance{ID: "i-1", PublicIP: "1.2.3.4"},
		Steps: []deploy.Step{
			{State: deploy.StateLookingUp, Duration: time.Second},
			{State: deploy.StateTransferring, Err: errors.New("rsync exploded")},
		},
		Final: deploy.StateFailed,
	})

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "update")
	assert.Contains(t, out, "looking_up")
	assert.Contains(t, out, "rsync exploded")
	assert.Contains(t, out, "failed")
}
