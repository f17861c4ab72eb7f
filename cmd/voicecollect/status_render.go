package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusLabels = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ""},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const (
	ansiReset   = "\x1b[0m"
	ansiHeading = "\x1b[1;34m"
	labelWidth  = 18
)

// statusPrinter accumulates status lines and colors them only for terminals.
type statusPrinter struct {
	colorize bool
	lines    []string
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{colorize: shouldColorize(w)}
}

func (p *statusPrinter) section(title string) {
	if len(p.lines) > 0 {
		p.lines = append(p.lines, "")
	}
	heading := "== " + strings.TrimSpace(title) + " =="
	if p.colorize {
		heading = ansiHeading + heading + ansiReset
	}
	p.lines = append(p.lines, heading)
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	p.lines = append(p.lines, renderStatusLine(label, kind, message, p.colorize))
}

func (p *statusPrinter) String() string {
	return strings.Join(p.lines, "\n")
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusLabels[kind]
	text := fmt.Sprintf("  %-*s [%s]", labelWidth, label+":", style.label)
	if message != "" {
		text += " " + message
	}
	if colorize && style.color != "" {
		return style.color + text + ansiReset
	}
	return text
}

// shouldColorize honours NO_COLOR and only colors real terminals.
func shouldColorize(w io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
