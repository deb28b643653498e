package web

import (
	"fmt"
	"strings"
)

// flagSpec declares the options a command accepts: each accepted spelling
// maps to a canonical name. value flags consume the next argument (or an
// =value suffix), boolean flags do not.
type flagSpec struct {
	value   map[string]string
	boolean map[string]string
}

type parsedArgs struct {
	values map[string][]string
	bools  map[string]bool
	args   []string
}

func (p parsedArgs) first(name string) string {
	if vs := p.values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseArgs splits args into positional arguments and declared options.
// Undeclared options are an error rather than silently becoming positional.
func parseArgs(args []string, spec flagSpec) (parsedArgs, error) {
	p := parsedArgs{
		values: make(map[string][]string),
		bools:  make(map[string]bool),
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			p.args = append(p.args, arg)
			continue
		}

		flag, inline, hasInline := strings.Cut(arg, "=")
		if name, ok := spec.boolean[flag]; ok {
			if hasInline {
				return p, fmt.Errorf("option %s takes no value", flag)
			}
			p.bools[name] = true
			continue
		}
		name, ok := spec.value[flag]
		if !ok {
			return p, fmt.Errorf("unknown option %s", flag)
		}
		if hasInline {
			p.values[name] = append(p.values[name], inline)
			continue
		}
		if i+1 >= len(args) {
			return p, fmt.Errorf("option %s needs a value", flag)
		}
		i++
		p.values[name] = append(p.values[name], args[i])
	}
	return p, nil
}

// splitCommand tokenizes a command line with shell-style quoting: single
// and double quotes group words, backslash escapes the next character
// outside single quotes.
func splitCommand(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inWord := false
	var quote rune

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("trailing backslash")
			}
			i++
			cur.WriteRune(runes[i])
			inWord = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
