// Package main implements the interactive hackterm shell.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"hackterm/internal/config"
	"hackterm/internal/hackterm"
	"hackterm/internal/kvstore"
	"hackterm/internal/logging"
	"hackterm/internal/terminal"
)

const (
	// Delay between lines of animated output.
	animationDelay = 40 * time.Millisecond
	// ANSI sequence that clears the screen and homes the cursor.
	clearScreen = "\033[H\033[2J"
)

var (
	statePath = flag.String("state", "", "Path to the state file (default $HACKTERM_STATE)")
	catalog   = flag.String("catalog", "", "Path to a catalog YAML file (default: embedded catalog)")
	logLevel  = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile   = flag.String("log-file", "", "Also write logs to this file")
	noAnimate = flag.Bool("no-animate", false, "Print animated output without delays")
)

func main() {
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	settings := config.FromEnv()
	if *statePath != "" {
		settings.StatePath = *statePath
	}
	if *catalog != "" {
		settings.Catalog = *catalog
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}
	if *logFile != "" {
		settings.LogFile = *logFile
	}

	// Keep stderr quiet in the shell unless asked otherwise.
	if *logLevel == "" && os.Getenv("HACKTERM_LOG_LEVEL") == "" {
		settings.LogLevel = "warn"
	}
	closer := logging.Setup(settings.LogLevel, settings.LogFile, logging.Text)
	defer closer.Close() //nolint:errcheck // best effort on exit

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	term, err := open(ctx, settings)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start terminal")
	}

	delay := animationDelay
	if *noAnimate {
		delay = 0
	}
	if err := repl(ctx, term, os.Stdin, os.Stdout, delay); err != nil {
		logrus.WithError(err).Error("Shell exited with error")
		os.Exit(1) //nolint:gocritic // deferred close is best effort
	}
}

func open(ctx context.Context, settings config.Settings) (*terminal.Terminal, error) {
	cat, err := loadCatalog(settings.Catalog)
	if err != nil {
		return nil, err
	}
	store, err := kvstore.OpenFile(ctx, settings.StatePath, kvstore.WithFileQuota(settings.QuotaBytes))
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"state":   store.Path(),
		"servers": len(cat.Servers),
		"files":   len(cat.Files),
	}).Info("Terminal state loaded")
	return terminal.New(store, cat, terminal.WithLogger(logrus.WithField("component", "shell"))), nil
}

func loadCatalog(path string) (*config.Catalog, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadFile(path)
}

// repl reads commands from in until EOF, "exit" or ctx is cancelled.
func repl(ctx context.Context, term *terminal.Terminal, in io.Reader, out io.Writer, delay time.Duration) error {
	w := bufio.NewWriter(out)
	defer w.Flush() //nolint:errcheck // flushed explicitly below

	fmt.Fprintln(w, "hackterm. Type 'help' to get started, 'exit' to leave.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, term.Prompt())
		if err := w.Flush(); err != nil {
			return err
		}
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		input := scanner.Text()
		if strings.TrimSpace(input) == "exit" {
			return nil
		}

		res := term.Execute(ctx, input)
		if err := render(ctx, w, res, delay); err != nil {
			return err
		}
		for _, n := range term.DrainNotifications() {
			fmt.Fprintf(w, ">>> %s\n", n)
		}
		if res.ShouldDestroy {
			if err := term.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(w, "System restored from backup.")
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func render(ctx context.Context, w *bufio.Writer, res hackterm.Result, delay time.Duration) error {
	if res.Clear {
		fmt.Fprint(w, clearScreen)
	}
	for _, line := range res.Output {
		fmt.Fprintln(w, line)
		if !res.IsAnimated || delay == 0 {
			continue
		}
		if err := w.Flush(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
	if res.App != "" {
		fmt.Fprintf(w, "[%s] running in the background.\n", res.App)
	}
	return nil
}
