package util

import (
	"testing"
	"time"
)

func TestParseCellDate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "pts format", input: "Mon-07-Oct-2024", want: "2024-10-07", ok: true},
		{name: "pts format single digit", input: "Wed-3-Apr-2024", want: "2024-04-03", ok: true},
		{name: "iso", input: "2024-10-07", want: "2024-10-07", ok: true},
		{name: "serial number", input: "45572", want: "2024-10-07", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "garbage", input: "next tuesday", ok: false},
		{name: "pts bad month", input: "Mon-07-Xyz-2024", ok: false},
		{name: "pts impossible day", input: "Sat-31-Feb-2024", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseCellDate(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if tc.ok && got.Format("2006-01-02") != tc.want {
				t.Fatalf("got %s want %s", got.Format("2006-01-02"), tc.want)
			}
		})
	}
}

func TestParseCellFloat(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    float64
		wantNil bool
		ok      bool
	}{
		{name: "plain", input: "12.5", want: 12.5, ok: true},
		{name: "decimal comma", input: "12,5", want: 12.5, ok: true},
		{name: "thousands space", input: "1 250", want: 1250, ok: true},
		{name: "thousands dot", input: "1.250", want: 1250, ok: true},
		{name: "empty is nil", input: "  ", wantNil: true, ok: true},
		{name: "non numeric", input: "n/a", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseCellFloat(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if !tc.ok {
				return
			}
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %v", *got)
				}
				return
			}
			if got == nil || *got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestParseCellInt(t *testing.T) {
	if v, ok := ParseCellInt("42"); !ok || v != 42 {
		t.Fatalf("got %d ok=%v", v, ok)
	}
	if v, ok := ParseCellInt(""); !ok || v != 0 {
		t.Fatalf("empty: got %d ok=%v", v, ok)
	}
	if _, ok := ParseCellInt("abc"); ok {
		t.Fatal("expected failure for non-numeric cell")
	}
}

func TestNormalizeProcess(t *testing.T) {
	cases := map[string]string{
		"fitup":         "Fit-up",
		"Fit-Up":        "Fit-up",
		" weld ":        "Welding",
		"SAND BLASTING": "Sandblasting",
		"galvanizing":   "Galvanization",
		"Custom Step":   "Custom Step",
	}
	for input, want := range cases {
		if got := NormalizeProcess(input); got != want {
			t.Errorf("NormalizeProcess(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseCellDateSerialRange(t *testing.T) {
	// Serial 2 is 1900-01-01 in the 1900 date system.
	got, ok := ParseCellDate("2")
	if !ok {
		t.Fatal("serial 2 should parse")
	}
	want := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
