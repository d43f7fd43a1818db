package passphrase

import (
	"errors"
	"strings"
	"testing"
)

func fakeSource(env map[string]string, prompt func() (string, error)) *Source {
	s := NewSource(DefaultEnv)
	s.lookup = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	s.prompt = prompt
	return s
}

func TestEnvironmentWins(t *testing.T) {
	prompted := false
	s := fakeSource(map[string]string{DefaultEnv: "hunter2"}, func() (string, error) {
		prompted = true
		return "", nil
	})
	got, err := s.Get()
	if err != nil || got != "hunter2" || prompted {
		t.Fatalf("got %q err=%v prompted=%v", got, err, prompted)
	}
}

func TestEmptyEnvironmentRejected(t *testing.T) {
	s := fakeSource(map[string]string{DefaultEnv: "  "}, nil)
	if _, err := s.Get(); err == nil || !strings.Contains(err.Error(), DefaultEnv) {
		t.Fatalf("expected empty env error, got %v", err)
	}
}

func TestPromptCachedAndValidated(t *testing.T) {
	calls := 0
	s := fakeSource(nil, func() (string, error) {
		calls++
		return "secret", nil
	})
	for i := 0; i < 3; i++ {
		if got, err := s.Get(); err != nil || got != "secret" {
			t.Fatalf("get: %q %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single prompt, got %d", calls)
	}

	blank := fakeSource(nil, func() (string, error) { return " ", nil })
	if _, err := blank.Get(); err == nil {
		t.Fatalf("expected blank passphrase error")
	}
}

func TestNoTerminalNamesEnvironment(t *testing.T) {
	s := fakeSource(nil, func() (string, error) { return "", errNoTerminal })
	_, err := s.Get()
	if err == nil || errors.Is(err, errNoTerminal) || !strings.Contains(err.Error(), DefaultEnv) {
		t.Fatalf("unexpected error %v", err)
	}
}
