package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	stepStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func step(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, stepStyle.Render("==>")+" "+fmt.Sprintf(format, args...))
}

func done(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("✓")+" "+fmt.Sprintf(format, args...))
}

func hint(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf(format, args...)))
}
