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

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// statusReport accumulates section headers and status lines for one command.
type statusReport struct {
	colorize bool
	lines    []string
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{colorize: shouldColorize(w)}
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	r.lines = append(r.lines, r.paint(ansiBlue, line), r.paint(ansiBlue, rule))
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	status := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		status += " " + message
	}
	r.lines = append(r.lines, r.paint(statusKindColor(kind), fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)))
}

func (r *statusReport) raw(text string) {
	r.lines = append(r.lines, text)
}

func (r *statusReport) writeTo(w io.Writer) error {
	if len(r.lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(r.lines, "\n")+"\n")
	return err
}

func (r *statusReport) paint(color, text string) string {
	if !r.colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
