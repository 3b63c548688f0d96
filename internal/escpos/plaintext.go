package escpos

import "strings"

// PlainText decodes the printable text of script, one entry per line feed.
// Control sequences and symbol payloads are dropped. Text is decoded with
// the code page selected by ESC t, falling back to PC437.
func PlainText(script []byte) []string {
	var (
		lines []string
		cur   strings.Builder
		cm    = codePages[PC437].charmap
	)

	for i := 0; i < len(script); {
		c := script[i]
		switch c {
		case LF:
			lines = append(lines, cur.String())
			cur.Reset()
			i++
		case ESC:
			if i+1 >= len(script) {
				return flush(lines, &cur)
			}
			switch script[i+1] {
			case '@':
				i += 2
			case 't':
				if i+2 < len(script) {
					for _, cp := range codePages {
						if cp.table == script[i+2] {
							cm = cp.charmap
						}
					}
				}
				i += 3
			case 'p':
				i += 5
			default:
				// ESC a, ESC E, ESC d and friends take one argument.
				i += 3
			}
		case GS:
			if i+1 >= len(script) {
				return flush(lines, &cur)
			}
			switch script[i+1] {
			case '(':
				// GS ( k / GS ( K: fn, pL, pH, then pL+pH*256 bytes.
				if i+4 >= len(script) {
					return flush(lines, &cur)
				}
				n := int(script[i+3]) + int(script[i+4])*256
				i += 5 + n
			case 'k':
				if i+3 >= len(script) {
					return flush(lines, &cur)
				}
				i += 4 + int(script[i+3])
			default:
				// GS !, GS V, GS h, GS w, GS H take one argument.
				i += 3
			}
		default:
			if c < 0x20 {
				i++
				continue
			}
			if c < 0x80 {
				cur.WriteByte(c)
			} else {
				cur.WriteRune(cm.DecodeByte(c))
			}
			i++
		}
	}
	return flush(lines, &cur)
}

func flush(lines []string, cur *strings.Builder) []string {
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
