package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"game-builder/internal/domain"
)

// linePrompter asks questions on out and reads one line of in per answer.
// A single goroutine owns in, so a cancelled Ask does not lose input.
type linePrompter struct {
	out   io.Writer
	lines chan string
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	p := &linePrompter{out: out, lines: make(chan string)}
	go p.read(in)
	return p
}

func (p *linePrompter) read(in io.Reader) {
	defer close(p.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		p.lines <- scanner.Text()
	}
}

// Ask returns the trimmed answer. End of input and cancellation are operator
// aborts.
func (p *linePrompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "\nAI: %s\nYour answer: ", question)
	return p.readLine(ctx)
}

func (p *linePrompter) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", domain.ErrOperatorAbort, ctx.Err())
	case line, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("%w: input closed", domain.ErrOperatorAbort)
		}
		return strings.TrimSpace(line), nil
	}
}
