package vm

import (
	"bufio"
	"io"
	"os"
	"strconv"
)

// InputFunc reads one byte of program input. It returns io.EOF at end of
// input; any other error aborts the run.
type InputFunc func() (byte, error)

// OutputCharFunc writes one character of program output.
type OutputCharFunc func(c byte) error

// OutputIntFunc writes one integer of program output.
type OutputIntFunc func(n Cell) error

// Console is the default I/O collaborator: buffered reads from one stream,
// buffered writes to another. Output is flushed before every read so prompts
// appear, and when the machine stops.
type Console struct {
	r *bufio.Reader
	w *bufio.Writer
}

// NewConsole returns a console over r and w.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{r: bufio.NewReader(r), w: bufio.NewWriter(w)}
}

// Stdio returns a console over the process's standard input and output.
func Stdio() *Console {
	return NewConsole(os.Stdin, os.Stdout)
}

// ReadByte implements InputFunc.
func (c *Console) ReadByte() (byte, error) {
	if err := c.w.Flush(); err != nil {
		return 0, err
	}
	return c.r.ReadByte()
}

// WriteChar implements OutputCharFunc.
func (c *Console) WriteChar(b byte) error {
	return c.w.WriteByte(b)
}

// WriteInt implements OutputIntFunc. The value is followed by a newline.
func (c *Console) WriteInt(n Cell) error {
	var buf [16]byte
	out := strconv.AppendInt(buf[:0], int64(n), 10)
	out = append(out, '\n')
	_, err := c.w.Write(out)
	return err
}

// Flush writes any buffered output.
func (c *Console) Flush() error {
	return c.w.Flush()
}

// intTextLen returns the number of bytes OOM writes for n.
func intTextLen(n Cell) uint64 {
	return uint64(len(strconv.FormatInt(int64(n), 10))) + 1
}

// maxNumberInput bounds the text oom reads, terminator included.
const maxNumberInput = 99

// parseCellInt converts text the way C's atoi does: optional leading spaces,
// an optional sign, then decimal digits up to the first non-digit. Text with
// no digits yields 0. Overflow wraps like cell arithmetic.
func parseCellInt(text []byte) Cell {
	i := 0
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	neg := false
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		neg = text[i] == '-'
		i++
	}
	var n Cell
	for ; i < len(text) && text[i] >= '0' && text[i] <= '9'; i++ {
		n = n*10 + Cell(text[i]-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
