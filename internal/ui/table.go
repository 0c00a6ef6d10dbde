package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/pkg/types"
)

// Column describes one table column
type Column struct {
	Title string
	Width int
	Style lipgloss.Style
}

// Table renders rows in a rounded box
type Table struct {
	Columns []Column
	rows    [][]string
	styles  [][]*lipgloss.Style
}

// AddRow appends a row; cells beyond the column count are ignored
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, nil)
}

// AddStyledRow appends a row whose cells override the column style when the
// matching style is non-nil
func (t *Table) AddStyledRow(cells []string, styles []*lipgloss.Style) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, styles)
}

// Render returns the table as a string
func (t *Table) Render() string {
	var sb strings.Builder

	t.border(&sb, TopLeft, TopT, TopRight)

	sb.WriteString(BorderStyle.Render(Vertical))
	for _, c := range t.Columns {
		sb.WriteString(HeaderStyle.Render(" " + padRight(c.Title, c.Width) + " "))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	t.border(&sb, LeftT, Cross, RightT)

	for r, row := range t.rows {
		sb.WriteString(BorderStyle.Render(Vertical))
		for i, c := range t.Columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			style := c.Style
			if styles := t.styles[r]; i < len(styles) && styles[i] != nil {
				style = *styles[i]
			}
			sb.WriteString(style.Render(" " + padRight(cell, c.Width) + " "))
			sb.WriteString(BorderStyle.Render(Vertical))
		}
		sb.WriteString("\n")
	}

	t.border(&sb, BottomLeft, BottomT, BottomRight)
	return sb.String()
}

func (t *Table) border(sb *strings.Builder, left, mid, right string) {
	sb.WriteString(BorderStyle.Render(left))
	for i, c := range t.Columns {
		sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, c.Width+2)))
		if i < len(t.Columns)-1 {
			sb.WriteString(BorderStyle.Render(mid))
		}
	}
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
}

// RenderInstanceTable renders instances with a state summary line
func RenderInstanceTable(instances []types.Instance) string {
	t := &Table{Columns: []Column{
		{"ID", 20, IDStyle},
		{"Name", 30, NameStyle},
		{"Public IP", 15, ValueStyle},
		{"Private IP", 15, ValueStyle},
		{"State", 10, ValueStyle},
		{"Type", 12, ValueStyle},
		{"Zone", 16, ValueStyle},
	}}

	counts := make(map[types.InstanceState]int)
	for _, inst := range instances {
		counts[inst.State]++
		glyph, style := stateIndicator(string(inst.State))
		t.AddStyledRow(
			[]string{inst.ID, inst.Name, formatOptional(inst.PublicIP), formatOptional(inst.PrivateIP),
				glyph + " " + string(inst.State), inst.Type, inst.Zone},
			[]*lipgloss.Style{nil, nil, nil, nil, &style},
		)
	}

	var parts []string
	for _, s := range []types.InstanceState{types.InstanceStateRunning, types.InstanceStatePending, types.InstanceStateStopping, types.InstanceStateStopped} {
		if c := counts[s]; c > 0 {
			_, style := stateIndicator(string(s))
			parts = append(parts, style.Render(fmt.Sprintf("%d %s", c, s)))
		}
	}

	summary := fmt.Sprintf("  %d instances", len(instances))
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	return t.Render() + summary + "\n"
}

// RenderReport renders the steps of a deployment run
func RenderReport(report *deploy.Report) string {
	t := &Table{Columns: []Column{
		{"Step", 20, NameStyle},
		{"Result", 10, ValueStyle},
		{"Duration", 10, MutedStyle},
		{"Error", 48, FailedStyle},
	}}

	for _, step := range report.Steps {
		result := "ok"
		style := RunningStyle
		if step.Err != nil {
			result = "failed"
			style = FailedStyle
		}
		errText := ""
		if step.Err != nil {
			errText = step.Err.Error()
		}
		t.AddStyledRow(
			[]string{step.State.String(), result, step.Duration.Round(time.Millisecond).String(), errText},
			[]*lipgloss.Style{nil, &style},
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", MutedStyle.Render("Run:"), report.RunID)
	if report.Branch != deploy.BranchNone {
		fmt.Fprintf(&sb, "%s %s\n", MutedStyle.Render("Branch:"), report.Branch)
	}
	if report.Instance != nil {
		fmt.Fprintf(&sb, "%s %s (%s)\n", MutedStyle.Render("Instance:"), IDStyle.Render(report.Instance.ID), report.Instance.Address())
	}
	if report.Record != nil {
		fmt.Fprintf(&sb, "%s %s -> %s\n", MutedStyle.Render("Record:"), NameStyle.Render(report.Record.Name), report.Record.Data)
	}
	sb.WriteString(t.Render())

	glyph, style := stateIndicator(report.Final.String())
	sb.WriteString(style.Render(fmt.Sprintf("  %s %s", glyph, report.Final)) + "\n")
	return sb.String()
}
