package cpu

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Info
	}{
		{"i7-8700T", Info{Type: "I7", Model: "8700T"}},
		{"I5-10500T", Info{Type: "I5", Model: "10500T"}},
		{"i3 8100", Info{Type: "I3", Model: "8100"}},
		{"i9", Info{Type: "I9", Model: NA}},
		{"N100", Info{Type: NSeries, Model: "N100"}},
		{"n5105", Info{Type: NSeries, Model: "N5105"}},
		{"Xeon E3", Info{Type: NA, Model: NA}},
		{"CELERON", Info{Type: NA, Model: NA}},
		{"i7-8700T extra", Info{Type: NA, Model: NA}},
		{"", Info{Type: NA, Model: NA}},
		{"N/A", Info{Type: NA, Model: NA}},
	}

	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Fatalf("Classify(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestKnown(t *testing.T) {
	if Known(NA) || Known("") {
		t.Fatalf("expected N/A and empty to be unknown")
	}
	if !Known("I7") {
		t.Fatalf("expected I7 to be known")
	}
}
