package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/assistant"
)

const cardRule = "────────────────────────────────────────"

var (
	assistantColor = color.New(color.FgWhite)
	ruleColor      = color.New(color.FgCyan)
	titleColor     = color.New(color.FgYellow, color.Bold)
	dangerColor    = color.New(color.FgRed, color.Bold)
	okColor        = color.New(color.FgGreen)
	errColor       = color.New(color.FgRed)
	dimColor       = color.New(color.Faint)
)

// renderTurn prints the assistant's reply followed by whatever the turn
// produced: a confirmation card, an execution result or a decline.
func renderTurn(w io.Writer, t *assistant.Turn) {
	switch {
	case t.Result != nil:
		renderResult(w, *t.Result)
	case t.Declined:
		fmt.Fprintln(w, dimColor.Sprint(t.Reply))
	default:
		if t.Reply != "" {
			fmt.Fprintln(w, assistantColor.Sprint(t.Reply))
		}
		if t.Proposed != nil {
			renderCard(w, t.Proposed)
		}
	}
}

// renderCard prints the confirmation card for a proposed action.
func renderCard(w io.Writer, p *action.Proposed) {
	effect := p.Kind.Effect()
	fmt.Fprintln(w, ruleColor.Sprint(cardRule))
	fmt.Fprintln(w, titleColor.Sprint(p.Summary))
	for _, line := range p.Preview() {
		fmt.Fprintln(w, "  "+line)
	}
	fmt.Fprintln(w, ruleColor.Sprint(cardRule))

	prompt := fmt.Sprintf("%s? [y/n]", effect.ConfirmLabel)
	if effect.Destructive {
		fmt.Fprintln(w, dangerColor.Sprint(prompt))
		return
	}
	fmt.Fprintln(w, titleColor.Sprint(prompt))
}

func renderResult(w io.Writer, r action.Result) {
	if r.Success {
		fmt.Fprintln(w, okColor.Sprint("✓ "+r.Message))
		return
	}
	fmt.Fprintln(w, errColor.Sprint("✗ "+r.Message))
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
