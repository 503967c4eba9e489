package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusConnected, StatusNotConnected} {
		parsed, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", s.String(), parsed, s)
		}
	}
}

func TestStatusStoredValues(t *testing.T) {
	if StatusConnected.String() != "connected" {
		t.Errorf("unexpected connected value %q", StatusConnected.String())
	}
	if StatusNotConnected.String() != "not connected" {
		t.Errorf("unexpected not connected value %q", StatusNotConnected.String())
	}
	if _, err := ParseStatus("away"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestLastOctet(t *testing.T) {
	tests := []struct {
		ip   string
		want int
	}{
		{"192.168.1.5", 5},
		{"10.0.0.254", 254},
		{"fe80::1", -1},
		{"", -1},
	}

	for _, tt := range tests {
		if got := LastOctet(tt.ip); got != tt.want {
			t.Errorf("LastOctet(%q) = %d, want %d", tt.ip, got, tt.want)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	in := time.Date(2024, 3, 1, 12, 0, 0, 123456789, loc)

	got := NormalizeTime(in)

	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", got.Location())
	}
	if got.Nanosecond() != 123456000 {
		t.Errorf("expected microsecond truncation, got %d ns", got.Nanosecond())
	}
	if !got.Equal(in.Truncate(time.Microsecond)) {
		t.Errorf("instant changed: %v vs %v", got, in)
	}
}

func TestDeviceDisplayName(t *testing.T) {
	d := Device{AdvertisedName: "Apple, Inc."}
	if d.DisplayName() != "Apple, Inc." {
		t.Errorf("unexpected display name %q", d.DisplayName())
	}
	d.Label = "office laptop"
	if d.DisplayName() != "office laptop" {
		t.Errorf("expected label to win, got %q", d.DisplayName())
	}
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(PresenceRow{Status: StatusNotConnected})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Status Status `json:"status"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Status != StatusNotConnected {
		t.Errorf("expected not connected, got %v", decoded.Status)
	}

	if _, err := json.Marshal(Status(7)); err == nil {
		t.Error("expected error for unknown status")
	}
}
