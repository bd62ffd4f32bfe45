package interactive

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled progress messages for the operator
type Console struct {
	out     io.Writer
	header  lipgloss.Style
	section lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
}

// NewConsole creates a console writing to out
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:     out,
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Border(lipgloss.NormalBorder(), false, false, true, false),
		section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

func (c *Console) Header(title string) {
	fmt.Fprintf(c.out, "\n%s\n", c.header.Render(strings.ToUpper(title)))
}

func (c *Console) Section(title string) {
	fmt.Fprintf(c.out, "\n%s\n", c.section.Render("» "+title))
}

func (c *Console) Info(message string) {
	fmt.Fprintln(c.out, c.info.Render(message))
}

func (c *Console) Success(message string) {
	fmt.Fprintln(c.out, c.success.Render("✓ "+message))
}

func (c *Console) Warn(message string) {
	fmt.Fprintln(c.out, c.warn.Render("! "+message))
}

func (c *Console) Error(message string) {
	fmt.Fprintln(c.out, c.err.Render("✗ "+message))
}
