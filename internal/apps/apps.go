// Package apps resolves "open x" and "./x" into mini-app launches or simulated file execution.
package apps

import (
	"fmt"
	"path"
	"strings"

	"hackterm/internal/config"
	"hackterm/internal/hackterm"
)

// Mini-apps the presentation layer knows how to open.
const (
	Mail   = "mail"
	Music  = "music"
	Snake  = "snake"
	Tetris = "tetris"
	Webcam = "webcam"
)

var aliases = map[string]string{
	"mail": Mail, "email": Mail, "inbox": Mail, "mail.app": Mail,
	"music": Music, "player": Music, "music.app": Music,
	"snake": Snake, "snake.exe": Snake,
	"tetris": Tetris, "tetris.exe": Tetris,
	"webcam": Webcam, "camera": Webcam, "cam": Webcam, "webcam.app": Webcam,
}

// Files looks up simulated files.
type Files interface {
	Lookup(path string) (config.File, bool)
}

// Infector starts a virus infection.
type Infector interface {
	Activate(kind hackterm.VirusKind) hackterm.Result
}

// Resolver maps launch shortcuts to results. A nil result means "not mine".
type Resolver struct {
	files Files
	virus Infector
}

// New creates a resolver.
func New(files Files, virus Infector) *Resolver {
	return &Resolver{files: files, virus: virus}
}

// AppName returns the canonical mini-app name for name.
func AppName(name string) (string, bool) {
	app, ok := aliases[strings.ToLower(name)]
	return app, ok
}

// Names returns the canonical mini-app names.
func Names() []string {
	return []string{Mail, Music, Snake, Tetris, Webcam}
}

// Open handles "open <target>". With no target it returns nil so the command
// table can print usage.
func (r *Resolver) Open(args []string) *hackterm.Result {
	if len(args) == 0 {
		return nil
	}
	target := args[0]
	if app, ok := AppName(target); ok {
		return launch(app)
	}
	if f, ok := r.files.Lookup(target); ok {
		if f.Locked {
			res := hackterm.Failure(fmt.Sprintf("open: %s: Permission denied (file is encrypted)", target))
			return &res
		}
		lines := strings.Split(strings.TrimRight(f.Content, "\n"), "\n")
		res := hackterm.Lines(append([]string{"--- " + f.Path + " ---"}, lines...)...)
		return &res
	}
	res := hackterm.Failure(
		fmt.Sprintf("open: %s: No such application or file", target),
		"Available applications: "+strings.Join(Names(), ", "),
	)
	return &res
}

// Exec handles a "./x" command token.
func (r *Resolver) Exec(token string) *hackterm.Result {
	name := strings.TrimPrefix(token, "./")
	if name == "" {
		return nil
	}

	if strings.Contains(strings.ToLower(name), "virus_prototype") {
		res := r.virus.Activate(hackterm.VirusPrototype)
		return &res
	}

	if app, ok := AppName(path.Base(name)); ok {
		return launch(app)
	}

	f, ok := r.files.Lookup(name)
	if !ok {
		return nil
	}
	switch {
	case f.Locked:
		res := hackterm.Failure(fmt.Sprintf("%s: Permission denied (file is encrypted)", token))
		return &res
	case !f.Executable:
		res := hackterm.Failure(fmt.Sprintf("%s: Permission denied", token))
		return &res
	case len(f.Run) == 0:
		res := hackterm.Lines(fmt.Sprintf("%s: exited with status 0", token))
		return &res
	default:
		res := hackterm.Lines(f.Run...)
		res.IsAnimated = true
		return &res
	}
}

func launch(app string) *hackterm.Result {
	res := hackterm.Lines(fmt.Sprintf("Launching %s...", app))
	res.App = app
	return &res
}
