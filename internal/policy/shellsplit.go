package policy

import (
	"fmt"
	"strings"
)

// ShellSplit tokenizes a command line the way a POSIX shell would split
// words, so quoted arguments containing spaces survive as single tokens.
// Used by the python family, where script arguments are passed directly to
// the interpreter without a shell. Operators are not interpreted; they come
// through as literal tokens.
func ShellSplit(command string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quote   rune // 0 = unquoted
		escaped bool
	)

	for _, r := range command {
		switch {
		case escaped:
			current.WriteRune(r)
			inToken = true
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("trailing backslash in command")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in command", quote)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
