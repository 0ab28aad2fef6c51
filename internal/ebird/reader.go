package ebird

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader streams Observations out of a tab-delimited eBird extract.
// Fields are split on tabs only; quote characters are literal text.
type Reader struct {
	br     *bufio.Reader
	line   int
	idx    HeaderIndex
	policy Policy
}

// NewReader reads the header row from r and prepares to stream records.
// It fails if the header is missing or lacks a required column.
func NewReader(r io.Reader, p Policy) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	rd := &Reader{br: br, policy: p}
	header, err := rd.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading header: empty input")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	rd.idx = MakeHeaderIndex(header)
	if missing := rd.idx.Missing(RequiredColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return rd, nil
}

// next returns the fields of the next non-blank line. Lines have no
// length limit.
func (r *Reader) next() ([]string, error) {
	for {
		s, err := r.br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if s == "" && err != nil {
			return nil, io.EOF
		}
		r.line++
		s = strings.TrimRight(s, "\r\n")
		if s == "" {
			if err != nil {
				return nil, io.EOF
			}
			continue
		}
		return strings.Split(s, "\t"), nil
	}
}

// Read returns the next accepted Observation.
//
// A rejected row is returned as a *RowError and the caller may keep reading.
// io.EOF marks the end of input. Any other error is an I/O failure.
func (r *Reader) Read() (Observation, error) {
	record, err := r.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Observation{}, io.EOF
		}
		return Observation{}, fmt.Errorf("reading input: %w", err)
	}

	obs, err := Parse(r.idx, record, r.policy)
	if err != nil {
		var re *RowError
		if errors.As(err, &re) {
			re.Line = r.line
			re.Raw = record
		}
		return Observation{}, err
	}
	return obs, nil
}

// Policy returns the policy the reader applies.
func (r *Reader) Policy() Policy {
	return r.policy
}
