package main

import (
	"fmt"
	"os"
	"strings"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"init", "Generate a .eventsearch.toml configuration file", runInit},
	{"search", "Search events by meaning, falling back to keywords", runSearch},
	{"add", "Embed an event and add it to the vector store", runAdd},
	{"event", "Add a raw event to the full-text index", runEvent},
	{"get", "Show the source row behind a hit, or a stored record", runGet},
	{"delete", "Remove records from the vector store and text index", runDelete},
}

func usageText() string {
	var b strings.Builder
	b.WriteString("eventsearch - Semantic event search with a keyword fallback\n\n")
	b.WriteString("Usage:\n  eventsearch <command> [options]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-8s  %s\n", c.name, c.summary)
	}
	b.WriteString("\nUse \"eventsearch <command> -help\" for more information about a command.")
	return b.String()
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usageText())
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		fmt.Println(usageText())
		return
	}

	c, ok := lookup(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s\n", name, usageText())
		os.Exit(1)
	}
	if err := c.run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
