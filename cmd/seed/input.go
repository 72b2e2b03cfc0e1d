package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Test seams.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	lookupEnv    = os.LookupEnv
)

// readAdminPassword prompts on w and reads the password without echo. When
// stdin is not a terminal SEED_PASSWORD is used instead.
//
// The returned byte slice should be wiped by the caller.
func readAdminPassword(w io.Writer) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		if v, ok := lookupEnv("SEED_PASSWORD"); ok && v != "" {
			return []byte(v), nil
		}
		return nil, errors.New("stdin is not a terminal and SEED_PASSWORD is not set")
	}

	if _, err := fmt.Fprint(w, "Admin password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, errors.New("empty password")
	}
	return pw, nil
}
