package virus

import (
	"path"
	"strings"

	"hackterm/internal/hackterm"
)

var execCommands = []string{"gcc", "g++", "nasm", "as", "ld", "make", "./", "exec", "run", "bash", "sh"}

var readCommands = map[string]bool{"cat": true, "head": true, "tail": true, "less": true, "more": true}

// Substrings that make a read-style command trigger.
var triggerNames = []string{
	"neocorp_countermeasure",
	"project_alpha_defense",
	"neocorp_alert",
	"extracted_data",
	"virus_prototype",
	"message_from_lain",
	"message_from_",
	"corrupted_unicode",
	"broken_encoding",
	"text_corruption",
}

// Exact trailing path segments that make a read-style command trigger.
var triggerFiles = map[string]bool{
	"neocorp_countermeasure.exe": true,
	"project_alpha_defense.txt":  true,
	"neocorp_alert.txt":          true,
	"extracted_data.db":          true,
	"virus_prototype.bin":        true,
	"message_from_lain.txt":      true,
	"corrupted_unicode.txt":      true,
	"broken_encoding.txt":        true,
	"text_corruption.log":        true,
}

// CheckTrigger reports whether running command with args starts an infection.
func CheckTrigger(command string, args []string) bool {
	command = strings.ToLower(command)
	if command == "" {
		return false
	}

	// Compiling or running anything that names the prototype releases it.
	if isExecCommand(command) {
		return strings.Contains(strings.ToLower(strings.Join(args, " ")), "virus_prototype")
	}

	if readCommands[command] {
		target := firstOperand(args)
		if target == "" {
			return false
		}
		// Substring names also catch variants such as message_from_bob.txt.
		// The exact-segment list overlaps it today; a hit on either triggers.
		for _, name := range triggerNames {
			if strings.Contains(target, name) {
				return true
			}
		}
		return triggerFiles[path.Base(target)]
	}

	return false
}

// DetectKind picks the virus kind for a triggering command. Trojan is the default.
func DetectKind(_ string, args []string) hackterm.VirusKind {
	text := strings.ToLower(strings.Join(args, " "))
	switch {
	case strings.Contains(text, "virus_prototype"):
		return hackterm.VirusPrototype
	case strings.Contains(text, "extracted_data"):
		return hackterm.VirusHoneypot
	case strings.Contains(text, "message_from_lain"), strings.Contains(text, "message_from_"):
		return hackterm.VirusAdware
	case strings.Contains(text, "corrupted_unicode"),
		strings.Contains(text, "broken_encoding"),
		strings.Contains(text, "text_corruption"):
		return hackterm.VirusCorruption
	default:
		return hackterm.VirusTrojan
	}
}

// isExecCommand matches by prefix as well, so "./run" and "make-all" count as exec-style.
func isExecCommand(command string) bool {
	for _, c := range execCommands {
		if command == c || strings.HasPrefix(command, c) {
			return true
		}
	}
	return false
}

// firstOperand returns the lower-cased first argument that is not a flag.
func firstOperand(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return strings.ToLower(a)
		}
	}
	return ""
}
