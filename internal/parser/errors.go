package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Reason classifies a grammar error
type Reason int

const (
	// UnknownCommand is a token that names no subcommand
	UnknownCommand Reason = iota + 1
	// UnknownFlag is a dashed token that matches no flag of the current command
	UnknownFlag
	// UnexpectedArgument is a token left over after every positional is bound
	UnexpectedArgument
	// InvalidValue is a value outside the value set or of the wrong type
	InvalidValue
	// MissingValue is a value-taking flag at the end of input
	MissingValue
	// DuplicateFlag is a non-repeatable flag given twice
	DuplicateFlag
	// MissingSubcommand is input ending at a command that requires a subcommand
	MissingSubcommand
	// MissingRequired is a required flag or positional that was never bound
	MissingRequired
)

// Sentinel errors, one per Reason, matched with errors.Is.
var (
	ErrUnknownCommand     = errors.New("unknown command")
	ErrUnknownFlag        = errors.New("unknown flag")
	ErrUnexpectedArgument = errors.New("unexpected argument")
	ErrInvalidValue       = errors.New("invalid value")
	ErrMissingValue       = errors.New("missing value")
	ErrDuplicateFlag      = errors.New("duplicate flag")
	ErrMissingSubcommand  = errors.New("missing subcommand")
	ErrMissingRequired    = errors.New("missing required argument")
)

var sentinels = map[Reason]error{
	UnknownCommand:     ErrUnknownCommand,
	UnknownFlag:        ErrUnknownFlag,
	UnexpectedArgument: ErrUnexpectedArgument,
	InvalidValue:       ErrInvalidValue,
	MissingValue:       ErrMissingValue,
	DuplicateFlag:      ErrDuplicateFlag,
	MissingSubcommand:  ErrMissingSubcommand,
	MissingRequired:    ErrMissingRequired,
}

// String returns the string representation of the reason
func (r Reason) String() string {
	if err, ok := sentinels[r]; ok {
		return err.Error()
	}
	return "grammar error"
}

// GrammarError describes why a token sequence does not match the grammar.
type GrammarError struct {
	Reason Reason
	// Token is the offending token text; empty for errors found at end of input.
	Token string
	// Index is the offending token's position, or -1 at end of input.
	Index int
	// Path is the command path matched before the error.
	Path []string
	// Name is the grammar name of the flag or positional involved, if any.
	Name string
	// Spelling is how that flag or positional is written: "--mode", "<path>".
	Spelling string
	// Expected lists what would have been accepted instead.
	Expected []string
	// Suggestion is the closest expected name to Token, if one is close.
	Suggestion string
	// Detail carries a type error for InvalidValue.
	Detail string
}

func (e *GrammarError) Error() string {
	var msg string
	switch e.Reason {
	case UnknownCommand:
		msg = fmt.Sprintf("unknown command %q", e.Token)
		if len(e.Path) > 0 {
			msg += fmt.Sprintf(" for %q", strings.Join(e.Path, " "))
		}
	case UnknownFlag:
		msg = fmt.Sprintf("unknown flag %q", e.Token)
		if len(e.Path) > 0 {
			msg += fmt.Sprintf(" for %q", strings.Join(e.Path, " "))
		}
	case UnexpectedArgument:
		msg = fmt.Sprintf("unexpected argument %q", e.Token)
	case InvalidValue:
		msg = fmt.Sprintf("invalid value %q for %s", e.Token, e.Spelling)
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
	case MissingValue:
		msg = fmt.Sprintf("%s requires a value", e.Spelling)
	case DuplicateFlag:
		msg = fmt.Sprintf("%s given more than once", e.Spelling)
	case MissingSubcommand:
		msg = fmt.Sprintf("%q requires a subcommand", strings.Join(e.Path, " "))
		if len(e.Path) == 0 {
			msg = "a command is required"
		}
	case MissingRequired:
		msg = fmt.Sprintf("missing required %s", e.Spelling)
	default:
		msg = "grammar error"
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Unwrap returns the sentinel for the error's reason.
func (e *GrammarError) Unwrap() error {
	return sentinels[e.Reason]
}

// suggest returns the candidate closest to unknown, or "" if nothing is within
// an edit distance of 3.
func suggest(unknown string, candidates []string) string {
	bestName := ""
	bestDistance := 4

	for _, candidate := range candidates {
		distance := levenshtein(unknown, candidate)
		if distance < bestDistance {
			bestDistance = distance
			bestName = candidate
		}
	}
	return bestName
}

// levenshtein computes the edit distance between two strings over runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	previous := make([]int, len(ra)+1)
	current := make([]int, len(ra)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		current[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous, current = current, previous
	}
	return previous[len(ra)]
}
