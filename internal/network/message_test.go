package network

import "testing"

func TestFormatMessage(t *testing.T) {
	cases := []struct {
		format string
		args   []string
		want   string
	}{
		{"You picked up %1", []string{"a test box"}, "You picked up a test box"},
		{"%2 gave %1 to %3", []string{"ammo", "Alice", "Bob"}, "Alice gave ammo to Bob"},
		{"missing %2", []string{"only one"}, "missing "},
		{"100% sure %1", []string{"x"}, "100% sure x"},
		{"trailing %", nil, "trailing %"},
		{"%0 is literal", []string{"x"}, "%0 is literal"},
	}
	for _, tc := range cases {
		if got := FormatMessage(tc.format, tc.args...); got != tc.want {
			t.Errorf("FormatMessage(%q, %v): expected %q, got %q", tc.format, tc.args, tc.want, got)
		}
	}
}
