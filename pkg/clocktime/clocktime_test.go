package clocktime

import (
	"testing"
	"time"
)

func TestTo24Hour(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2:30", "14:30"},
		{"12:00", "12:00"},
		{"9:05", "21:05"},
		{"23:10", "23:10"},
		{"abc", "abc"},
		{"1:00", "13:00"},
		{"11:59", "23:59"},
		{"0:15", "00:15"},
		{"00:15", "00:15"},
		{"09:05", "21:05"},
		{"13:45", "13:45"},
		{"", ""},
		{"2:3", "2:3"},
		{"2:30 PM", "2:30 PM"},
		{"123:00", "123:00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := To24Hour(tt.in); got != tt.want {
				t.Errorf("To24Hour(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2030-01-31", time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"2030-01-31T10:00:00Z", time.Date(2030, 1, 31, 10, 0, 0, 0, time.UTC)},
		{"2030-01-31T10:00:00", time.Date(2030, 1, 31, 10, 0, 0, 0, time.UTC)},
		{"2030-01-31T12:00:00.5+02:00", time.Date(2030, 1, 31, 10, 0, 0, 500000000, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "31/01/2030", "tomorrow"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}
