package precision

import "testing"

func TestFromStep(t *testing.T) {
	cases := []struct {
		step string
		want int
	}{
		{"1.00000000", 0},
		{"0.10000000", 1},
		{"0.01000000", 2},
		{"0.00001000", 5},
		{"0.00000001", 7},
		{"10.00000000", 0},
		{"1", 0},
	}

	for _, tc := range cases {
		got, err := FromStep(tc.step)
		if err != nil {
			t.Fatalf("FromStep(%q) returned error: %v", tc.step, err)
		}
		if got != tc.want {
			t.Errorf("FromStep(%q) = %d, want %d", tc.step, got, tc.want)
		}
	}
}

func TestFromStep_NoOne(t *testing.T) {
	if _, err := FromStep("0.00000000"); err == nil {
		t.Fatalf("expected error for step without digit 1")
	}
	if _, err := FromStep("0.005"); err == nil {
		t.Fatalf("expected error for step 0.005")
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		value  float64
		places int
		want   float64
	}{
		{151.14999, 2, 151.15},
		{6.615944, 2, 6.62},
		{123.456, 0, 123},
		{125, -1, 130},
		{0.000123456, 5, 0.00012},
	}

	for _, tc := range cases {
		if got := Round(tc.value, tc.places); got != tc.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tc.value, tc.places, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(6.62, 4); got != "6.6200" {
		t.Errorf("Format(6.62, 4) = %q", got)
	}
	if got := Format(130, -1); got != "130" {
		t.Errorf("Format(130, -1) = %q", got)
	}
}
