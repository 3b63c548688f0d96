// Package escpos builds ESC/POS command scripts for thermal receipt printers.
package escpos

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// ESC/POS command constants
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// DefaultWidth is the characters per line used when none is configured.
const DefaultWidth = 32

var (
	ErrEmptyValue    = errors.New("symbol value is empty")
	ErrValueTooLong  = errors.New("symbol value is too long")
	ErrUnknownSymbol = errors.New("unknown barcode type")
)

type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

type Style int

const (
	StyleNormal Style = iota
	StyleBold
	StyleDoubleWidth
	StyleDoubleHeight
)

// Speed is the print speed level sent with GS ( K. Lower is slower and
// darker.
type Speed byte

const (
	SpeedQuality Speed = 1
	SpeedNormal  Speed = 5
	SpeedFast    Speed = 9
)

// BarcodeType is the m argument of GS k (function B).
type BarcodeType byte

const (
	BarcodeUPCA    BarcodeType = 65
	BarcodeUPCE    BarcodeType = 66
	BarcodeEAN13   BarcodeType = 67
	BarcodeEAN8    BarcodeType = 68
	BarcodeCODE39  BarcodeType = 69
	BarcodeITF     BarcodeType = 70
	BarcodeCODABAR BarcodeType = 71
	BarcodeCODE93  BarcodeType = 72
	BarcodeCODE128 BarcodeType = 73
)

const (
	defaultQRSize = 6
	maxQRData     = 7089
	qrECCMedium   = 49
)

// Builder accumulates ESC/POS commands as an ordered list of tokens.
// Alignment and style persist until changed. A Builder is reusable across
// receipts through Reset but is not safe for concurrent use.
type Builder struct {
	tokens   [][]byte
	width    int
	codePage CodePage
	align    Alignment
	style    Style
	err      error
}

type Option func(*Builder)

// WithWidth sets the characters per line used by Separator.
func WithWidth(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.width = n
		}
	}
}

// WithCodePage sets the character table text is encoded with.
func WithCodePage(cp CodePage) Option {
	return func(b *Builder) {
		if _, ok := codePages[cp]; ok {
			b.codePage = cp
		}
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{width: DefaultWidth, codePage: PC437}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Width() int { return b.width }

// Alignment returns the alignment subsequent text is printed with.
func (b *Builder) Alignment() Alignment { return b.align }

// Style returns the current text style.
func (b *Builder) Style() Style { return b.style }

// Err returns the first error recorded while building, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) emit(p ...byte) *Builder {
	b.tokens = append(b.tokens, p)
	return b
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Initialize resets the printer (ESC @) and selects the code page. It must
// be the first command of a script.
func (b *Builder) Initialize() *Builder {
	b.align = AlignLeft
	b.style = StyleNormal
	b.emit(ESC, '@')
	return b.emit(ESC, 't', codePages[b.codePage].table)
}

// SetAlignment sends ESC a n.
func (b *Builder) SetAlignment(a Alignment) *Builder {
	b.align = a
	return b.emit(ESC, 'a', byte(a))
}

// SetStyle sends the emphasis (ESC E) and character size (GS !) pair for s.
func (b *Builder) SetStyle(s Style) *Builder {
	b.style = s
	switch s {
	case StyleBold:
		return b.emit(ESC, 'E', 1, GS, '!', 0x00)
	case StyleDoubleWidth:
		return b.emit(ESC, 'E', 0, GS, '!', 0x10)
	case StyleDoubleHeight:
		return b.emit(ESC, 'E', 0, GS, '!', 0x01)
	default:
		b.style = StyleNormal
		return b.emit(ESC, 'E', 0, GS, '!', 0x00)
	}
}

// Text writes content followed by a line feed. An alignment argument is
// applied first and stays in effect afterwards.
func (b *Builder) Text(content string, align ...Alignment) *Builder {
	if len(align) > 0 {
		b.SetAlignment(align[0])
	}
	line := b.encode(content)
	line = append(line, LF)
	return b.emit(line...)
}

// BoldText writes content in bold and switches back to normal style.
func (b *Builder) BoldText(content string, align ...Alignment) *Builder {
	b.SetStyle(StyleBold)
	defer b.SetStyle(StyleNormal)
	return b.Text(content, align...)
}

// Separator prints a full-width line of char, '-' by default.
func (b *Builder) Separator(char ...rune) *Builder {
	c := '-'
	if len(char) > 0 {
		c = char[0]
	}
	return b.Text(strings.Repeat(string(c), b.width))
}

// NewLine sends n line feeds.
func (b *Builder) NewLine(n int) *Builder {
	if n <= 0 {
		return b
	}
	return b.emit(bytes.Repeat([]byte{LF}, n)...)
}

// Barcode prints value as a 1D barcode with the HRI text below it.
func (b *Builder) Barcode(value string, typ BarcodeType) *Builder {
	if value == "" {
		return b.fail(fmt.Errorf("barcode: %w", ErrEmptyValue))
	}
	if typ < BarcodeUPCA || typ > BarcodeCODE128 {
		return b.fail(fmt.Errorf("barcode %d: %w", typ, ErrUnknownSymbol))
	}
	data := b.encode(value)
	if typ == BarcodeCODE128 {
		data = append([]byte("{B"), data...)
	}
	if len(data) > 255 {
		return b.fail(fmt.Errorf("barcode: %w", ErrValueTooLong))
	}

	cmd := []byte{
		GS, 'H', 2, // HRI below
		GS, 'h', 80, // height
		GS, 'w', 2, // module width
		GS, 'k', byte(typ), byte(len(data)),
	}
	cmd = append(cmd, data...)
	cmd = append(cmd, LF)
	return b.emit(cmd...)
}

// QRCode prints value as a model 2 QR symbol. size is the module size in
// dots (1..16); zero selects the default.
func (b *Builder) QRCode(value string, size int) *Builder {
	if value == "" {
		return b.fail(fmt.Errorf("qr code: %w", ErrEmptyValue))
	}
	if len(value) > maxQRData {
		return b.fail(fmt.Errorf("qr code: %w", ErrValueTooLong))
	}
	switch {
	case size == 0:
		size = defaultQRSize
	case size < 1:
		size = 1
	case size > 16:
		size = 16
	}

	stored := len(value) + 3
	pL, pH := byte(stored%256), byte(stored/256)

	cmd := []byte{
		GS, '(', 'k', 0x04, 0x00, 0x31, 0x41, 0x32, 0x00, // model 2
		GS, '(', 'k', 0x03, 0x00, 0x31, 0x43, byte(size), // module size
		GS, '(', 'k', 0x03, 0x00, 0x31, 0x45, qrECCMedium, // error correction
		GS, '(', 'k', pL, pH, 0x31, 0x50, 0x30, // store
	}
	cmd = append(cmd, value...)
	cmd = append(cmd, GS, '(', 'k', 0x03, 0x00, 0x31, 0x51, 0x30) // print
	return b.emit(cmd...)
}

// SetSpeed sends GS ( K fn 50.
func (b *Builder) SetSpeed(s Speed) *Builder {
	return b.emit(GS, '(', 'K', 0x02, 0x00, 0x32, byte(s))
}

// Cut sends GS V, full or partial.
func (b *Builder) Cut(partial bool) *Builder {
	if partial {
		return b.emit(GS, 'V', 0x01)
	}
	return b.emit(GS, 'V', 0x00)
}

// OpenDrawer kicks the cash drawer on pin 2 (ESC p 0 25 250).
func (b *Builder) OpenDrawer() *Builder {
	return b.emit(ESC, 'p', 0x00, 0x19, 0xFA)
}

// Build concatenates the tokens into a script. It does not change the
// builder, so calling it twice returns the same bytes.
func (b *Builder) Build() []byte {
	n := 0
	for _, t := range b.tokens {
		n += len(t)
	}
	out := make([]byte, 0, n)
	for _, t := range b.tokens {
		out = append(out, t...)
	}
	return out
}

// Reset clears the buffer, the recorded error and the alignment and style.
func (b *Builder) Reset() *Builder {
	b.tokens = nil
	b.err = nil
	b.align = AlignLeft
	b.style = StyleNormal
	return b
}

func (b *Builder) encode(s string) []byte {
	cm := codePages[b.codePage].charmap
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			out = append(out, ' ')
			continue
		}
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		c, ok := cm.EncodeRune(r)
		if !ok {
			c = '?'
		}
		out = append(out, c)
	}
	return out
}

// CodePage names a printer character table.
type CodePage string

const (
	PC437   CodePage = "PC437"
	PC850   CodePage = "PC850"
	PC858   CodePage = "PC858"
	WPC1252 CodePage = "WPC1252"
)

type codePage struct {
	table   byte // ESC t n
	charmap *charmap.Charmap
}

var codePages = map[CodePage]codePage{
	PC437:   {table: 0, charmap: charmap.CodePage437},
	PC850:   {table: 2, charmap: charmap.CodePage850},
	WPC1252: {table: 16, charmap: charmap.Windows1252},
	PC858:   {table: 19, charmap: charmap.CodePage858},
}

// ParseCodePage maps a configuration value to a CodePage, defaulting to
// PC437.
func ParseCodePage(s string) CodePage {
	cp := CodePage(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := codePages[cp]; ok {
		return cp
	}
	return PC437
}
