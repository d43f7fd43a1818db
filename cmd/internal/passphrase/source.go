package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// DefaultEnv names the variable checked before prompting.
const DefaultEnv = "VAULTCHAIN_KEY_PASS"

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting the operator. The value is cached after the first successful
// retrieval so repeated calls reuse the same secret.
type Source struct {
	envVar string
	lookup func(string) (string, bool)
	prompt func() (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// interactively prompting on the terminal.
func NewSource(envVar string) *Source {
	return &Source{
		envVar: strings.TrimSpace(envVar),
		lookup: os.LookupEnv,
		prompt: promptTerminal,
	}
}

// Get returns the cached passphrase or resolves it if this is the first call.
// Whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := s.lookup(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}
		value, err := s.prompt()
		if err != nil {
			if errors.Is(err, errNoTerminal) && s.envVar != "" {
				err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			}
			s.err = err
			return
		}
		if strings.TrimSpace(value) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = value
	})

	return s.value, s.err
}

var errNoTerminal = errors.New("keystore passphrase required and no terminal available")

func promptTerminal() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errNoTerminal
	}
	fmt.Fprint(os.Stderr, "Enter vault keystore passphrase: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(bytes), nil
}
