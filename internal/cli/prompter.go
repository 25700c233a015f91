package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Veraticus/esparrago/internal/records"
	"github.com/shopspring/decimal"
)

// ErrInputCancelled is returned when a prompt is abandoned by its context.
var ErrInputCancelled = errors.New("input canceled")

type line struct {
	err  error
	text string
}

// Prompter reads answers line by line. Reads honor context cancellation: a
// single goroutine owns the reader, so an abandoned read is picked up by the
// next prompt instead of being lost.
type Prompter struct {
	writer  io.Writer
	lines   chan line
	reader  *bufio.Reader
	start   chan struct{}
	waiting bool
}

// NewPrompter reads from r and writes prompts to w (stdin/stdout when nil).
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	p := &Prompter{
		writer: w,
		reader: bufio.NewReader(r),
		lines:  make(chan line),
		start:  make(chan struct{}, 1),
	}
	go p.readLoop()
	return p
}

func (p *Prompter) readLoop() {
	for range p.start {
		text, err := p.reader.ReadString('\n')
		if err != nil && (text == "" || !errors.Is(err, io.EOF)) {
			p.lines <- line{err: err}
			continue
		}
		p.lines <- line{text: strings.TrimSpace(text)}
	}
}

// ReadLine returns the next trimmed line. It is not safe for concurrent use.
func (p *Prompter) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}
	// A read requested by an abandoned prompt is still outstanding.
	if !p.waiting {
		p.start <- struct{}{}
		p.waiting = true
	}
	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case l := <-p.lines:
		p.waiting = false
		return l.text, l.err
	}
}

// Printf writes to the prompt output.
func (p *Prompter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.writer, format, args...)
}

// Println writes a line to the prompt output.
func (p *Prompter) Println(args ...any) {
	_, _ = fmt.Fprintln(p.writer, args...)
}

// Ask prompts for a value. An empty answer returns def.
func (p *Prompter) Ask(ctx context.Context, label, def string) (string, error) {
	if def != "" {
		p.Printf("%s%s ", FormatPrompt(label), SubtleStyle.Render("["+def+"]"))
	} else {
		p.Printf("%s", FormatPrompt(label))
	}
	answer, err := p.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question; only s/si/sí/y/yes count as yes.
func (p *Prompter) Confirm(ctx context.Context, label string) (bool, error) {
	answer, err := p.Ask(ctx, label+" (s/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "s", "si", "sí", "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choose lists options and returns the one picked by number or by exact
// text. An empty answer returns "" so callers can treat it as done.
func (p *Prompter) Choose(ctx context.Context, label string, options []string) (string, error) {
	for i, o := range options {
		p.Printf("  %s %s\n", SubtleStyle.Render(fmt.Sprintf("[%d]", i+1)), o)
	}
	for {
		answer, err := p.Ask(ctx, label, "")
		if err != nil || answer == "" {
			return "", err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, o := range options {
			if strings.EqualFold(o, answer) {
				return o, nil
			}
		}
		p.Println(FormatWarning(fmt.Sprintf("Opción no válida: %s", answer)))
	}
}

// Decimal prompts until the answer parses as a number. Currency symbols and
// thousands separators are accepted.
func (p *Prompter) Decimal(ctx context.Context, label string, def decimal.Decimal) (decimal.Decimal, error) {
	for {
		answer, err := p.Ask(ctx, label, def.String())
		if err != nil {
			return decimal.Zero, err
		}
		clean := strings.NewReplacer("$", "", ",", "").Replace(answer)
		d, err := decimal.NewFromString(strings.TrimSpace(clean))
		if err == nil {
			return d, nil
		}
		p.Println(FormatWarning(fmt.Sprintf("Número no válido: %s", answer)))
	}
}

// Form prompts for each column. With current set, an empty answer keeps the
// current value, and skip lists columns that are not asked at all.
func (p *Prompter) Form(ctx context.Context, columns []string, current records.Record, skip ...string) (records.Record, error) {
	out := records.Record{}
	for _, col := range columns {
		if slices.Contains(skip, col) {
			out[col] = current[col]
			continue
		}
		v, err := p.Ask(ctx, col, current[col])
		if err != nil {
			return nil, err
		}
		out[col] = v
	}
	return out, nil
}
