package verify

import (
	"fmt"
	"strings"

	"cmdtutor/internal/tutorerr"
)

// The input filter stops accidental invocations from hanging the session.
// It is a heuristic and not a security boundary.

// trailingKeywords are shell words that expect a continuation.
var trailingKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"case": true, "esac": true, "while": true, "do": true, "done": true,
	"for": true, "in": true,
}

// blockingCommands wait for a password, a remote peer or a REPL.
var blockingCommands = map[string]bool{
	"sudo": true, "su": true, "ssh": true, "scp": true, "ftp": true,
	"telnet": true, "mysql": true, "psql": true,
	"python": true, "node": true, "perl": true, "ruby": true, "php": true,
}

// trailingOperators leave the shell waiting for more input.
var trailingOperators = []string{"|", ">", "<", "`", "(", "[", "{"}

// needsArguments are commands that do nothing useful on their own.
var needsArguments = map[string]bool{
	"as": true, "at": true, "awk": true, "sed": true,
	"find": true, "xargs": true, "exec": true,
}

// Sanitize rejects input that is empty or likely to hang the shell. The
// returned error wraps ErrInputValidation and its Message is learner-facing.
func Sanitize(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return reject("Please enter a command.")
	}

	words := strings.Fields(input)
	last := words[len(words)-1]

	incomplete := trailingKeywords[last] || blockingCommands[last]
	for _, op := range trailingOperators {
		if strings.HasSuffix(input, op) {
			incomplete = true
			break
		}
	}
	if incomplete {
		return reject(fmt.Sprintf("The command '%s' appears incomplete or might cause issues. Please check your command and try again.", input))
	}

	if (strings.Count(input, `"`)+strings.Count(input, "'"))%2 != 0 {
		return reject("You have unclosed quotes in your command. Please close all quotes and try again.")
	}

	open := strings.Count(input, "(") + strings.Count(input, "[") + strings.Count(input, "{")
	closed := strings.Count(input, ")") + strings.Count(input, "]") + strings.Count(input, "}")
	if open != closed {
		return reject("You have unmatched brackets or parentheses. Please check your command and try again.")
	}

	if len(words) == 1 && needsArguments[strings.ToLower(words[0])] {
		return reject(fmt.Sprintf("The command '%s' typically requires additional arguments. Please provide a complete command.", words[0]))
	}

	return nil
}

func reject(msg string) error {
	return tutorerr.New("verify", "Sanitize", tutorerr.ErrInputValidation, msg)
}
