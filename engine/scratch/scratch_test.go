package scratch

import "testing"

func TestSprintf(t *testing.T) {
	Init(256)
	defer Reset()

	cases := []struct {
		format string
		args   []any
		want   string
	}{
		{"draws %d quads %d", []any{int(3), int64(120)}, "draws 3 quads 120"},
		{"fps %.1f", []any{float64(59.94)}, "fps 59.9"},
		{"dt %f", []any{float32(0.5)}, "dt 0.500"},
		{"mem %s %% used", []any{"12MiB"}, "mem 12MiB % used"},
		{"plain", nil, "plain"},
	}
	for _, c := range cases {
		if got := Sprintf(c.format, c.args...); got != c.want {
			t.Fatalf("Sprintf(%q) = %q, want %q", c.format, got, c.want)
		}
	}
}

func TestResetKeepsCapacity(t *testing.T) {
	Init(64)
	Sprintf("x %d y %d", 1, 2)
	before := Cap()
	Reset()
	if Cap() != before {
		t.Fatalf("Reset changed capacity: %d -> %d", before, Cap())
	}
	if got := Sprintf("%d", 7); got != "7" {
		t.Fatalf("Sprintf after Reset = %q", got)
	}
}
