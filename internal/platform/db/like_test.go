package db

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ivanov", "ivanov"},
		{"%", `\%`},
		{"_", `\_`},
		{"50%_off", `50\%\_off`},
		{`back\slash`, `back\\slash`},
		{"", ""},
	}
	for _, tc := range cases {
		if got := EscapeLike(tc.in); got != tc.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
