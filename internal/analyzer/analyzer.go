// Package analyzer matches command invocations against YAML trigger rules.
package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"hackterm/internal/config"
)

// Invocation is one dispatched command as seen by trigger rules.
type Invocation struct {
	Command string
	Args    []string
	Output  []string
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]*regexp.Regexp)
)

func compile(expr string) (*regexp.Regexp, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if re, ok := cache[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, err
	}
	cache[expr] = re
	return re, nil
}

// Match reports whether inv satisfies rule.
// The command must be listed (or the rule uses "*"); Args is matched against the
// space-joined arguments; Output matches if ANY output line matches, like grep.
func Match(rule config.TriggerRule, inv Invocation) (bool, error) {
	if !matchCommand(rule, inv.Command) {
		return false, nil
	}

	if rule.Args != "" {
		re, err := compile(rule.Args)
		if err != nil {
			return false, fmt.Errorf("invalid args regex: %w", err)
		}
		if !re.MatchString(strings.Join(inv.Args, " ")) {
			return false, nil
		}
	}

	if rule.Output != "" {
		re, err := compile(rule.Output)
		if err != nil {
			return false, fmt.Errorf("invalid output regex: %w", err)
		}
		found := false
		for _, line := range inv.Output {
			if re.MatchString(line) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	return true, nil
}

func matchCommand(rule config.TriggerRule, command string) bool {
	command = strings.ToLower(command)
	for _, name := range rule.Commands() {
		if name == "*" || name == command {
			return true
		}
	}
	return false
}
