package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"

	"valuesgen-cli/internal/interfaces"
)

// errSelectionCancelled is returned by the number-key selectors on Escape
// or Ctrl+C.
var errSelectionCancelled = errors.New("selection cancelled")

// Prompter asks questions on the terminal
type Prompter struct {
	messages     Messages
	numberSelect bool
	in           io.Reader
	out          io.Writer
}

// NewPrompter creates a new interactive prompter. With numberSelect,
// choices are picked by pressing the option's number key.
func NewPrompter(numberSelect bool) *Prompter {
	return &Prompter{
		messages:     DefaultMessages(),
		numberSelect: numberSelect,
		in:           os.Stdin,
		out:          os.Stdout,
	}
}

// mapError turns the various ways of aborting a prompt into
// ErrUserCancelled
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, terminal.InterruptErr), errors.Is(err, errSelectionCancelled), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %v", interfaces.ErrUserCancelled, err)
	}
	return err
}

// AskText asks for free text
func (p *Prompter) AskText(ctx context.Context, key, def string, opts ...interfaces.AskOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", mapError(terminal.InterruptErr)
	}
	o := interfaces.ResolveAskOptions(opts...)
	msg := p.messages.Lookup(key)
	help := o.Help
	if help == "" {
		help = msg.Help
	}

	var prompt survey.Prompt
	if o.Sensitive {
		// survey.Password has no default, so an empty answer keeps def below
		prompt = &survey.Password{Message: msg.Text + ":", Help: help}
	} else {
		prompt = &survey.Input{Message: msg.Text + ":", Default: def, Help: help}
	}

	var askOpts []survey.AskOpt
	if o.Required && (def == "" || o.Sensitive) {
		askOpts = append(askOpts, survey.WithValidator(survey.Required))
	}

	var answer string
	if err := survey.AskOne(prompt, &answer, askOpts...); err != nil {
		return "", mapError(err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = def
	}
	return answer, nil
}

// AskYesNo asks a yes/no question
func (p *Prompter) AskYesNo(ctx context.Context, key string, def bool, opts ...interfaces.AskOption) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, mapError(terminal.InterruptErr)
	}
	msg := p.messages.Lookup(key)
	v, err := p.selectYesNo(msg.Text+"?", msg.Help, def)
	return v, mapError(err)
}

// AskChoice asks the operator to pick one option
func (p *Prompter) AskChoice(ctx context.Context, key string, options []string, def string, opts ...interfaces.AskOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", mapError(terminal.InterruptErr)
	}
	if len(options) == 0 {
		return def, nil
	}
	msg := p.messages.Lookup(key)
	v, err := p.selectOption(options, msg.Text+":", msg.Help, def)
	return v, mapError(err)
}

// selectOption handles option selection with optional number key support
func (p *Prompter) selectOption(options []string, message, help, def string) (string, error) {
	if p.numberSelect {
		return p.selectOptionWithNumbers(options, message, help, def)
	}

	prompt := &survey.Select{
		Message: message,
		Options: displayOptions(options),
		Help:    help,
	}
	if i := slices.Index(options, def); i >= 0 {
		prompt.Default = prompt.Options[i]
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return "", err
	}
	return options[index], nil
}

// displayOptions gives the empty option a visible label
func displayOptions(options []string) []string {
	out := make([]string, len(options))
	for i, o := range options {
		if o == "" {
			o = "(none)"
		}
		out[i] = o
	}
	return out
}

// selectOptionWithNumbers displays numbered options and allows instant selection by number key
func (p *Prompter) selectOptionWithNumbers(options []string, message, help, def string) (string, error) {
	defIndex := max(slices.Index(options, def), 0)

	fmt.Fprintf(p.out, "\n%s\n", message)
	if help != "" {
		fmt.Fprintf(p.out, "  %s (Press number key for instant selection)\n", help)
	}
	fmt.Fprintln(p.out)

	for i, option := range displayOptions(options) {
		if i == defIndex {
			fmt.Fprintf(p.out, "  %d. %s (default)\n", i+1, option)
			continue
		}
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, option)
	}
	fmt.Fprintln(p.out)

	// Check if we're in a terminal that supports raw mode
	if len(options) > 9 || !term.IsTerminal(int(syscall.Stdin)) {
		return p.fallbackNumberSelection(options, defIndex)
	}

	oldState, err := term.MakeRaw(int(syscall.Stdin))
	if err != nil {
		return p.fallbackNumberSelection(options, defIndex)
	}
	defer term.Restore(int(syscall.Stdin), oldState)

	fmt.Fprint(p.out, "Select option: ")

	buffer := make([]byte, 1)
	for {
		if _, err := p.in.Read(buffer); err != nil {
			return "", err
		}

		char := buffer[0]

		if char >= '1' && char <= '9' {
			selectedIndex := int(char - '1')
			if selectedIndex < len(options) {
				fmt.Fprintf(p.out, "%c\r\n", char)
				return options[selectedIndex], nil
			}
		}

		// Enter takes the default
		if char == '\r' || char == '\n' {
			fmt.Fprint(p.out, "\r\n")
			return options[defIndex], nil
		}

		// Escape or Ctrl+C
		if char == 27 || char == 3 {
			fmt.Fprint(p.out, "\r\n")
			return "", errSelectionCancelled
		}
	}
}

// fallbackNumberSelection provides a fallback when raw terminal mode is not available
func (p *Prompter) fallbackNumberSelection(options []string, defIndex int) (string, error) {
	fmt.Fprintf(p.out, "Enter number (1-%d) or press Enter for default: ", len(options))

	input, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil {
		return "", err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return options[defIndex], nil
	}

	selectedIndex, err := strconv.Atoi(input)
	if err != nil || selectedIndex < 1 || selectedIndex > len(options) {
		return "", fmt.Errorf("invalid selection: please enter a number between 1 and %d", len(options))
	}

	return options[selectedIndex-1], nil
}

// selectYesNo handles yes/no selection with optional number key support
func (p *Prompter) selectYesNo(message, help string, defaultValue bool) (bool, error) {
	if p.numberSelect {
		def := "No"
		if defaultValue {
			def = "Yes"
		}
		choice, err := p.selectOptionWithNumbers([]string{"Yes", "No"}, message, help, def)
		return choice == "Yes", err
	}

	prompt := &survey.Confirm{
		Message: message,
		Help:    help,
		Default: defaultValue,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}

	return result, nil
}

// IsTerminal reports whether stdin is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}
