package ttyguard

import "testing"

func TestShouldSuppressTTYQueries(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  bool
		want bool
	}{
		{"tui", []string{"lt", "--source", "dir:."}, false, false},
		{"dump", []string{"lt", "--dump", "json"}, false, true},
		{"dump with value", []string{"lt", "--dump=md"}, false, true},
		{"single dash", []string{"lt", "-dump", "md"}, false, true},
		{"seed", []string{"lt", "--seed-sqlite", "x.db"}, false, true},
		{"version", []string{"lt", "--version"}, false, true},
		{"help", []string{"lt", "-h"}, false, true},
		{"test mode", []string{"lt"}, true, true},
		{"dump as value", []string{"lt", "--goto", "dump"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSuppressTTYQueries(tt.args, tt.env); got != tt.want {
				t.Errorf("ShouldSuppressTTYQueries(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
