package health

import "testing"

func TestStatusReportsAIConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		want  bool
	}{
		{"no check", nil, false},
		{"unconfigured", func() bool { return false }, false},
		{"configured", func() bool { return true }, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			status := NewService(tt.check).Status()
			if !status["ok"] {
				t.Fatalf("expected ok")
			}
			if status["openaiConfigured"] != tt.want {
				t.Fatalf("expected openaiConfigured=%v, got %v", tt.want, status["openaiConfigured"])
			}
		})
	}
}
