package lexer

import "strings"

// Preprocess strips `{$IFDEF X}`/`{$IFNDEF X}`/`{$ELSE}`/`{$ENDIF}` (and the
// `{$IFEND}` spelling) conditional blocks and the `0x1A` (SUB) sentinel
// byte, honoring the caller-supplied define set. Lines are processed
// independently; a directive must occupy its own line.
func Preprocess(source string, defines map[string]bool) string {
	source = strings.Map(func(r rune) rune {
		if r == 0x1A {
			return -1
		}
		return r
	}, source)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	type frame struct {
		active  bool // whether this branch is currently emitting
		taken   bool // whether any branch in this if-chain has been taken
		parent  bool // whether the enclosing context is active
	}
	var stack []frame
	activeNow := func() bool {
		for _, f := range stack {
			if !f.active {
				return false
			}
		}
		return true
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "{$IFDEF ") || strings.HasPrefix(upper, "{$IFNDEF "):
			neg := strings.HasPrefix(upper, "{$IFNDEF ")
			name := extractDirectiveArg(trimmed)
			cond := defines[name]
			if neg {
				cond = !cond
			}
			parentActive := activeNow()
			stack = append(stack, frame{active: parentActive && cond, taken: cond, parent: parentActive})
			continue
		case strings.HasPrefix(upper, "{$ELSE}"):
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				top.active = top.parent && !top.taken
				top.taken = true
			}
			continue
		case strings.HasPrefix(upper, "{$ENDIF}"), strings.HasPrefix(upper, "{$IFEND}"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if activeNow() {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// extractDirectiveArg pulls the identifier out of `{$IFDEF NAME}` or
// `{$IFNDEF NAME}`, trimming the closing brace.
func extractDirectiveArg(directive string) string {
	i := strings.IndexByte(directive, ' ')
	if i < 0 {
		return ""
	}
	rest := directive[i+1:]
	rest = strings.TrimSuffix(strings.TrimSpace(rest), "}")
	return strings.ToUpper(strings.TrimSpace(rest))
}
