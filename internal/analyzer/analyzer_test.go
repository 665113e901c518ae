package analyzer

import (
	"testing"

	"hackterm/internal/config"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		rule config.TriggerRule
		inv  Invocation
		want bool
	}{
		{
			name: "command only",
			rule: config.TriggerRule{Command: "xyzzy"},
			inv:  Invocation{Command: "xyzzy"},
			want: true,
		},
		{
			name: "command list",
			rule: config.TriggerRule{Command: "cat,head,tail"},
			inv:  Invocation{Command: "HEAD", Args: []string{"/etc/passwd"}},
			want: true,
		},
		{
			name: "wildcard",
			rule: config.TriggerRule{Command: "*", Args: "secret"},
			inv:  Invocation{Command: "anything", Args: []string{"top", "SECRET"}},
			want: true,
		},
		{
			name: "wrong command",
			rule: config.TriggerRule{Command: "cat"},
			inv:  Invocation{Command: "ls"},
			want: false,
		},
		{
			name: "args mismatch",
			rule: config.TriggerRule{Command: "theme", Args: "^matrix$"},
			inv:  Invocation{Command: "theme", Args: []string{"amber"}},
			want: false,
		},
		{
			name: "args joined with spaces",
			rule: config.TriggerRule{Command: "sudo", Args: "make me a sandwich"},
			inv:  Invocation{Command: "sudo", Args: []string{"make", "me", "a", "Sandwich"}},
			want: true,
		},
		{
			name: "output any line",
			rule: config.TriggerRule{Command: "crack", Output: "access granted"},
			inv:  Invocation{Command: "crack", Output: []string{"Checking...", "ACCESS GRANTED to 1.2.3.4"}},
			want: true,
		},
		{
			name: "output missing",
			rule: config.TriggerRule{Command: "crack", Output: "access granted"},
			inv:  Invocation{Command: "crack", Output: []string{"ACCESS DENIED"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.rule, tt.inv)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchInvalidRegex(t *testing.T) {
	_, err := Match(config.TriggerRule{Command: "cat", Args: "([a-"}, Invocation{Command: "cat", Args: []string{"x"}})
	if err == nil {
		t.Error("expected error for invalid regex")
	}
}
