package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxLineLen bounds one console command line.
const MaxLineLen = 512

// ErrLineTooLong is returned when a client sends an oversized line.
var ErrLineTooLong = errors.New("line too long")

// ReadLine reads one console line from r.
// Wire format: UTF-8 text terminated by "\n"; a trailing "\r" is dropped.
func ReadLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if sb.Len() > 0 && errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			return "", fmt.Errorf("read line: %w", err)
		}
		sb.Write(chunk)
		if sb.Len() > MaxLineLen {
			return "", ErrLineTooLong
		}
		if !isPrefix {
			return sb.String(), nil
		}
	}
}

// WriteLine writes s followed by "\r\n". Embedded newlines are kept so a
// multi-line reply arrives as consecutive lines.
func WriteLine(w io.Writer, s string) error {
	s = strings.ReplaceAll(strings.TrimRight(s, "\r\n"), "\n", "\r\n")
	if _, err := io.WriteString(w, s+"\r\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
