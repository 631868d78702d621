package rate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
)

// ParseError reports a token that is not a base-10 integer.
// The worker skips such tokens and keeps reading.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid rate token %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TokenReader reads whitespace-separated integer tokens from a stream.
type TokenReader struct {
	scanner *bufio.Scanner
	name    string
}

// NewTokenReader wraps r. name identifies the stream in events and logs.
func NewTokenReader(r io.Reader, name string) *TokenReader {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &TokenReader{scanner: s, name: name}
}

// Name returns the stream name.
func (t *TokenReader) Name() string { return t.name }

// ReadNextRate blocks until the next token is available. Cancellation is only
// observed before the read starts; a read already blocked on the stream is not
// interrupted. Returns io.EOF when the stream ends.
func (t *TokenReader) ReadNextRate(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return parseToken(t.scanner.Text())
}

func parseToken(tok string) (int64, error) {
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, &ParseError{Token: tok, Err: err}
	}
	return v, nil
}
