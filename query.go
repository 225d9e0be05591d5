package vxi11

import (
	"fmt"
	"strconv"
	"strings"
)

// Query writes cmd (a SCPI or other instrument command expecting a
// response) and reads back up to maxLen bytes of the reply (§4.8). It is a
// convenience wrapper around Write/Read for the common
// write-then-read-response pattern.
func (s *Session) Query(cmd string, maxLen int) (string, error) {
	if _, err := s.Write([]byte(cmd)); err != nil {
		return "", err
	}
	buf := make([]byte, maxLen)
	n, err := s.Read(buf)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf[:n]), "\r\n"), nil
}

// QueryFloat issues Query and parses the trimmed response as a float64.
func (s *Session) QueryFloat(cmd string, maxLen int) (float64, error) {
	resp, err := s.Query(cmd, maxLen)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("vxi11: parse float response %q: %w", resp, err)
	}
	return v, nil
}

// QueryInt issues Query and parses the trimmed response as an int.
func (s *Session) QueryInt(cmd string, maxLen int) (int, error) {
	resp, err := s.Query(cmd, maxLen)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, fmt.Errorf("vxi11: parse int response %q: %w", resp, err)
	}
	return v, nil
}

// QueryString issues Query and returns the trimmed response verbatim; it
// exists alongside Query mainly for symmetry with QueryFloat/QueryInt at
// call sites that want to be explicit about the expected type.
func (s *Session) QueryString(cmd string, maxLen int) (string, error) {
	return s.Query(cmd, maxLen)
}
