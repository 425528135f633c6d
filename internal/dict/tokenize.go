package dict

// isSpaceBreak reports whether the code point splits tokens. The set is
// fixed by the trainer's tokenizer, not by unicode.IsSpace.
func isSpaceBreak(cp rune) bool {
	switch {
	case cp == 0x00A0: // no-break space
		return true
	case cp == 0x0009: // horizontal tabulation
		return true
	case cp >= 0x000A && cp <= 0x000D: // LF, VT, FF, CR
		return true
	case cp == 0x0020: // space
		return true
	case cp == 0x0085: // next line
		return true
	case cp == 0x1680: // Ogham space mark
		return true
	case cp >= 0x2000 && cp <= 0x200A: // Zs space separators
		return true
	case cp >= 0x2028 && cp <= 0x2029: // line / paragraph separator
		return true
	case cp == 0x202F: // narrow no-break space
		return true
	case cp == 0x205F: // medium mathematical space
		return true
	case cp == 0x3000: // ideographic space
		return true
	}
	return false
}

// Tokenize splits line on the fixed whitespace set, dropping empty runs.
func Tokenize(line string) []string {
	var tokens []string
	start := -1
	for i, cp := range line {
		if isSpaceBreak(cp) {
			if start >= 0 {
				tokens = append(tokens, line[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, line[start:])
	}
	return tokens
}

// lineTokens appends the EOS sentinel to a token slice.
func lineTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens)+1)
	out = append(out, tokens...)
	return append(out, EOS)
}
