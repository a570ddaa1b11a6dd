package protocol

import "strings"

type Verb int

const (
	VerbUnknown Verb = iota
	VerbJoin
	VerbName
	VerbSay
	VerbLeave
)

var verbs = map[string]Verb{
	"JOIN":  VerbJoin,
	"NAME":  VerbName,
	"SAY":   VerbSay,
	"LEAVE": VerbLeave,
}

// ParseVerb matches a command word exactly (case-sensitive).
func ParseVerb(word string) Verb {
	if v, ok := verbs[word]; ok {
		return v
	}
	return VerbUnknown
}

func (v Verb) String() string {
	switch v {
	case VerbJoin:
		return "JOIN"
	case VerbName:
		return "NAME"
	case VerbSay:
		return "SAY"
	case VerbLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// Command is one parsed phrase. Name keeps the raw first word, which matters for VerbUnknown.
type Command struct {
	Verb Verb
	Name string
	Args []string
}

// Arg returns the i-th argument or "" when absent.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Text joins all arguments with single spaces.
func (c Command) Text() string {
	return strings.Join(c.Args, " ")
}
