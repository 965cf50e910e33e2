package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/tab_grouper/internal/controller"
)

// groupColors maps tab group colors onto ANSI 256 colors.
var groupColors = map[string]lipgloss.Color{
	"blue":   lipgloss.Color("33"),
	"cyan":   lipgloss.Color("44"),
	"green":  lipgloss.Color("40"),
	"grey":   lipgloss.Color("245"),
	"orange": lipgloss.Color("208"),
	"pink":   lipgloss.Color("205"),
	"purple": lipgloss.Color("135"),
	"red":    lipgloss.Color("196"),
	"yellow": lipgloss.Color("220"),
}

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tabIndent = "    "
)

func groupStyle(color string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	if c, ok := groupColors[color]; ok {
		s = s.Foreground(c)
	}
	return s
}

func renderPlan(w io.Writer, plan controller.WindowPlan) {
	groups, tabs := 0, 0
	for _, item := range plan.Items {
		tabs += len(item.TabIDs)
		if item.Kind != controller.KindGroup {
			fmt.Fprintf(w, "%s\n", strings.Join(item.URLs, " "))
			continue
		}
		groups++
		header := fmt.Sprintf("▾ %s", item.Title)
		fmt.Fprintf(w, "%s %s\n", groupStyle(item.Color).Render(header), dimStyle.Render(fmt.Sprintf("(%s, %d tabs)", item.Color, len(item.TabIDs))))
		for _, u := range item.URLs {
			fmt.Fprintf(w, "%s%s\n", tabIndent, u)
		}
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d tabs, %d groups", tabs, groups)))
}
