package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  ErrorRecord
	}{
		{"zero value", ErrorRecord{}},
		{"typical", ErrorRecord{Valid: ErrorDatMagic, Level: 90, Source: 100, Err: -1, Argument: 0, Time: 42}},
		{"negative err code", ErrorRecord{Valid: ErrorDatMagic, Level: 120, Source: 7, Err: -12345, Argument: 65535, Time: 1}},
		{"max fields", ErrorRecord{Valid: ErrorDatMagic, Level: 255, Source: 65535, Err: 2147483647, Argument: 65535, Time: 4294967295}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := tc.rec.MarshalBinary()
			if len(buf) != RecordSize {
				t.Fatalf("expected %d bytes, got %d", RecordSize, len(buf))
			}
			got := UnmarshalRecord(buf)
			if diff := cmp.Diff(tc.rec, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorRecordIsValid(t *testing.T) {
	valid := ErrorRecord{Valid: ErrorDatMagic}
	if !valid.IsValid() {
		t.Error("expected sentinel-stamped record to be valid")
	}

	zero := ErrorRecord{}
	if zero.IsValid() {
		t.Error("expected zeroed record to be invalid")
	}
}

func TestBandThresholds(t *testing.T) {
	cases := []struct {
		level uint8
		want  string
	}{
		{0, "Debug"},
		{29, "Debug"},
		{30, "Info"},
		{59, "Info"},
		{60, "Warning"},
		{89, "Warning"},
		{90, "Error"},
		{119, "Error"},
		{120, "Critical"},
		{255, "Critical"},
	}
	for _, c := range cases {
		if got := Band(c.level); got != c.want {
			t.Errorf("Band(%d) = %q, want %q", c.level, got, c.want)
		}
	}
}
