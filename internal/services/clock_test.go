package services

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		value   string
		minutes int
		wantErr bool
	}{
		{value: "00:00", minutes: 0},
		{value: "09:30", minutes: 570},
		{value: "23:59", minutes: 1439},
		{value: "24:00", wantErr: true},
		{value: "12:60", wantErr: true},
		{value: "9:30", wantErr: true},
		{value: "09-30", wantErr: true},
		{value: "09:5x", wantErr: true},
		{value: "0x:30", wantErr: true},
		{value: "+9:30", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseClock(tc.value)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseClock(%q): expected error, got %d", tc.value, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseClock(%q): %v", tc.value, err)
		}
		if got != tc.minutes {
			t.Fatalf("parseClock(%q): expected %d, got %d", tc.value, tc.minutes, got)
		}
	}
}

func TestCombineDateClock(t *testing.T) {
	date := time.Date(2026, time.March, 16, 17, 45, 12, 0, time.UTC)
	got := combineDateClock(date, 570)
	want := time.Date(2026, time.March, 16, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRangesOverlapIsHalfOpen(t *testing.T) {
	cases := []struct {
		name    string
		aStart  int
		aEnd    int
		bStart  int
		bEnd    int
		overlap bool
	}{
		{name: "partial overlap", aStart: 540, aEnd: 600, bStart: 570, bEnd: 630, overlap: true},
		{name: "contained", aStart: 540, aEnd: 660, bStart: 570, bEnd: 600, overlap: true},
		{name: "identical", aStart: 540, aEnd: 600, bStart: 540, bEnd: 600, overlap: true},
		{name: "touching boundaries", aStart: 540, aEnd: 600, bStart: 600, bEnd: 660, overlap: false},
		{name: "disjoint", aStart: 540, aEnd: 600, bStart: 720, bEnd: 780, overlap: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rangesOverlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.overlap {
				t.Fatalf("expected %v, got %v", tc.overlap, got)
			}
			// Overlap is symmetric.
			if got := rangesOverlap(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.overlap {
				t.Fatalf("reversed: expected %v, got %v", tc.overlap, got)
			}
		})
	}
}
