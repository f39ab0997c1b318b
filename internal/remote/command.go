package remote

import "strings"

// Verb is a normalised command name.
type Verb string

const (
	VerbLogin   Verb = "LOGIN"
	VerbList    Verb = "LIST"
	VerbToggle  Verb = "TOGGLE"
	VerbExit    Verb = "EXIT"
	VerbUnknown Verb = ""
)

// Command is one parsed input line.
type Command struct {
	Verb Verb
	// Raw is the verb as typed, kept for logging unknown commands.
	Raw  string
	Args []string
}

// Parse splits line on runs of whitespace and upper-cases the verb. It
// reports false for a blank or whitespace-only line.
func Parse(line string) (Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}

	cmd := Command{Raw: fields[0], Args: fields[1:]}
	switch v := Verb(strings.ToUpper(fields[0])); v {
	case VerbLogin, VerbList, VerbToggle, VerbExit:
		cmd.Verb = v
	default:
		cmd.Verb = VerbUnknown
	}
	return cmd, true
}

// Arg returns the i-th argument, or "" when absent.
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}
