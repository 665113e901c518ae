package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"hackterm/internal/apps"
	"hackterm/internal/hackterm"
)

const defaultHeadLines = 10

func (h *handlers) registerFiles() {
	h.table.Register(Command{Name: "ls", Usage: "ls [path]", Summary: "List directory contents", Run: h.ls})
	h.table.Register(Command{Name: "cat", Usage: "cat <file>", Summary: "Print a file", Run: h.reader("cat", 0)})
	h.table.Register(Command{Name: "head", Usage: "head [-n N] <file>", Summary: "Print the first lines of a file", Run: h.reader("head", 1)})
	h.table.Register(Command{Name: "tail", Usage: "tail [-n N] <file>", Summary: "Print the last lines of a file", Run: h.reader("tail", -1)})
	h.table.Alias("less", Command{Usage: "less <file>", Run: h.reader("less", 0)})
	h.table.Alias("more", Command{Usage: "more <file>", Run: h.reader("more", 0)})
	h.table.Register(Command{
		Name:    "open",
		Usage:   "open <app|file>",
		Summary: "Open an application (" + strings.Join(apps.Names(), ", ") + ") or a file",
		Run:     h.open,
	})
}

func (h *handlers) ls(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
	dir := "~"
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			dir = a
			break
		}
	}
	if f, ok := h.Files.Lookup(dir); ok {
		return hackterm.Lines(f.Path), nil
	}
	names, ok := h.Files.List(dir)
	if !ok {
		return hackterm.Failure(fmt.Sprintf("ls: cannot access '%s': No such file or directory", dir)), nil
	}
	return hackterm.Lines(names...), nil
}

// reader builds cat-like commands. mode 0 prints everything, 1 the head, -1 the tail.
func (h *handlers) reader(name string, mode int) Handler {
	return func(_ context.Context, args []string, _ *hackterm.Env) (hackterm.Result, error) {
		n := defaultHeadLines
		var target string
		for i := 0; i < len(args); i++ {
			a := args[i]
			switch {
			case a == "-n" && i+1 < len(args):
				v, err := strconv.Atoi(args[i+1])
				if err != nil || v < 0 {
					return hackterm.Failure(fmt.Sprintf("%s: invalid number of lines: '%s'", name, args[i+1])), nil
				}
				n = v
				i++
			case strings.HasPrefix(a, "-n"):
				v, err := strconv.Atoi(a[2:])
				if err != nil || v < 0 {
					return hackterm.Failure(fmt.Sprintf("%s: invalid number of lines: '%s'", name, a[2:])), nil
				}
				n = v
			case strings.HasPrefix(a, "-"):
			case target == "":
				target = a
			}
		}
		if target == "" {
			return hackterm.Failure(fmt.Sprintf("Usage: %s <file>", name)), nil
		}

		f, ok := h.Files.Lookup(target)
		if !ok {
			if h.Files.IsDir(target) {
				return hackterm.Failure(fmt.Sprintf("%s: %s: Is a directory", name, target)), nil
			}
			return hackterm.Failure(fmt.Sprintf("%s: %s: No such file or directory", name, target)), nil
		}
		if f.Locked {
			return hackterm.Failure(
				fmt.Sprintf("%s: %s: Permission denied", name, target),
				"File is encrypted. Crack the server that owns it first.",
			), nil
		}

		lines := strings.Split(strings.TrimRight(f.Content, "\n"), "\n")
		switch {
		case mode > 0 && len(lines) > n:
			lines = lines[:n]
		case mode < 0 && len(lines) > n:
			lines = lines[len(lines)-n:]
		}
		return hackterm.Lines(lines...), nil
	}
}

// open only runs when the launch resolver declined, i.e. without arguments.
func (h *handlers) open(_ context.Context, _ []string, _ *hackterm.Env) (hackterm.Result, error) {
	return hackterm.Failure(
		"Usage: open <app|file>",
		"Applications: "+strings.Join(apps.Names(), ", "),
	), nil
}
