package admin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"ldapadm/internal/ldap"
)

// StdinFileToken marks a password file argument that reads standard input
// instead of a named file.
const StdinFileToken = "-"

// PasswordSource gathers password values for the password intent.
// Flag-supplied values always come first, then values read line-by-line
// from the listed files, then a single interactive prompt when nothing
// else produced a value.
type PasswordSource struct {
	Values []string
	Files  []string

	Stdin  io.Reader              // Defaults to os.Stdin
	Prompt func() (string, error) // Defaults to a no-echo terminal prompt
}

// Gather resolves the source into the final ordered value list.
func (s *PasswordSource) Gather() ([]string, error) {
	passwords := make([]string, 0, len(s.Values))
	passwords = append(passwords, s.Values...)

	for _, file := range s.Files {
		values, err := s.readFile(file)
		if err != nil {
			return nil, err
		}
		passwords = append(passwords, values...)
	}

	if len(passwords) > 0 {
		return passwords, nil
	}

	prompt := s.Prompt
	if prompt == nil {
		prompt = promptPassword
	}
	value, err := prompt()
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return []string{value}, nil
}

func (s *PasswordSource) readFile(name string) ([]string, error) {
	var reader io.Reader
	if name == StdinFileToken {
		reader = s.Stdin
		if reader == nil {
			reader = os.Stdin
		}
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("reading password file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var values []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		value := strings.TrimSpace(scanner.Text())
		if value != "" {
			values = append(values, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading password file %q: %w", name, err)
	}
	return values, nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// PasswordTarget identifies whose passwords the password intent modifies.
type PasswordTarget struct {
	Admin bool   // Target the administrator account
	DN    string // Explicit target DN
	Login string // Target a user by login
}

// Resolve picks the target DN. Priority: administrator flag, explicit DN,
// login mapped to a user DN, then the DN the session authenticated as.
func (t PasswordTarget) Resolve(adminDN, base, sessionDN string) (string, error) {
	switch {
	case t.Admin:
		return adminDN, nil
	case t.DN != "":
		return t.DN, nil
	case t.Login != "":
		return ldap.BuildDN(t.Login, ldap.UnitUsers, base), nil
	case sessionDN != "":
		return sessionDN, nil
	}
	return "", fmt.Errorf("no password target: specify --admin, --dn or --login")
}
