package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/folio/internal/profile"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// printProjects writes one block per project.
func printProjects(w io.Writer, projects []profile.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "no matching projects")
		return
	}
	for _, p := range projects {
		fmt.Fprintln(w, colorize(colorBold, p.Title))
		if p.Description != "" {
			fmt.Fprintf(w, "  %s\n", p.Description)
		}
		var links []string
		if p.Links.GitHub != "" {
			links = append(links, p.Links.GitHub)
		}
		if p.Links.Live != "" {
			links = append(links, p.Links.Live)
		}
		if len(links) > 0 {
			fmt.Fprintf(w, "  %s\n", colorize(colorCyan, strings.Join(links, "  ")))
		}
	}
}
