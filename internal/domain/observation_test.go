package domain

import (
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
		want   Observation
	}{
		{
			name:   "arp-scan host line",
			line:   "192.168.1.5\taa:bb:cc:dd:ee:ff\tApple, Inc.",
			wantOK: true,
			want:   Observation{IP: "192.168.1.5", MAC: "AA:BB:CC:DD:EE:FF", AdvertisedName: "Apple, Inc."},
		},
		{
			name:   "surrounding whitespace trimmed",
			line:   "  10.0.0.2\tAA:BB:CC:DD:EE:01\tphone \r",
			wantOK: true,
			want:   Observation{IP: "10.0.0.2", MAC: "AA:BB:CC:DD:EE:01", AdvertisedName: "phone"},
		},
		{
			name:   "name keeps inner tabs",
			line:   "10.0.0.3\t00:11:22:33:44:55\tVendor\t(DUP: 2)",
			wantOK: true,
			want:   Observation{IP: "10.0.0.3", MAC: "00:11:22:33:44:55", AdvertisedName: "Vendor\t(DUP: 2)"},
		},
		{
			name:   "invalid utf-8 in name replaced",
			line:   "10.0.0.4\t00:11:22:33:44:66\tAcme\xff\xfeCorp",
			wantOK: true,
			want:   Observation{IP: "10.0.0.4", MAC: "00:11:22:33:44:66", AdvertisedName: "Acme\uFFFDCorp"},
		},
		{name: "blank line", line: "", wantOK: false},
		{name: "whitespace only", line: " \t ", wantOK: false},
		{name: "banner", line: "Interface: en0, type: EN10MB, MAC: a4:83:e7:00:00:01, IPv4: 192.168.1.10", wantOK: false},
		{name: "summary", line: "12 packets received by filter, 0 packets dropped by kernel", wantOK: false},
		{name: "missing name", line: "10.0.0.2\tAA:BB:CC:DD:EE:01\t", wantOK: false},
		{name: "short mac", line: "10.0.0.2\tAA:BB:CC:DD:EE\tphone", wantOK: false},
		{name: "spaces instead of tabs", line: "10.0.0.2 AA:BB:CC:DD:EE:01 phone", wantOK: false},
		{name: "non-hex mac", line: "10.0.0.2\tZZ:BB:CC:DD:EE:01\tphone", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseScanFirstMACWins(t *testing.T) {
	lines := []string{
		"Interface: en0, datalink type: EN10MB (Ethernet)",
		"10.0.0.2\tAA:BB:CC:DD:EE:01\tphone",
		"10.0.0.7\taa:bb:cc:dd:ee:01\tphone (DUP: 2)",
		"",
		"10.0.0.3\tAA:BB:CC:DD:EE:02\tlaptop",
	}

	result := ParseScan(lines)

	if len(result.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(result.Observations))
	}
	if result.Observations[0].IP != "10.0.0.2" || result.Observations[0].AdvertisedName != "phone" {
		t.Errorf("expected first line to win, got %+v", result.Observations[0])
	}
	if result.Observations[1].MAC != "AA:BB:CC:DD:EE:02" {
		t.Errorf("expected scan order preserved, got %+v", result.Observations[1])
	}
	if result.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", result.Duplicates)
	}
	if len(result.Skipped) != 1 {
		t.Errorf("expected only the banner to be skipped, got %v", result.Skipped)
	}
}

func TestParseScanIdempotent(t *testing.T) {
	lines := []string{
		"10.0.0.2\tAA:BB:CC:DD:EE:01\tphone",
		"10.0.0.3\tAA:BB:CC:DD:EE:02\tlaptop",
	}

	// Output concatenated from a failed and a retried scanner invocation
	doubled := append(append([]string{}, lines...), lines...)

	once := ParseScan(lines)
	twice := ParseScan(doubled)

	if len(once.Observations) != len(twice.Observations) {
		t.Fatalf("expected %d observations, got %d", len(once.Observations), len(twice.Observations))
	}
	for i := range once.Observations {
		if once.Observations[i] != twice.Observations[i] {
			t.Errorf("observation %d differs: %+v vs %+v", i, once.Observations[i], twice.Observations[i])
		}
	}
}

func TestSplitLines(t *testing.T) {
	if got := SplitLines("  \n "); got != nil {
		t.Errorf("expected nil for blank output, got %v", got)
	}
	got := SplitLines("a\nb\n")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected split: %v", got)
	}
}

func TestCanonicalMAC(t *testing.T) {
	if CanonicalMAC("aa:bb:cc:dd:ee:ff") != CanonicalMAC("AA:BB:CC:DD:EE:FF") {
		t.Error("expected case-insensitive canonical form")
	}
	if got := CanonicalMAC(" aa:bb:cc:dd:ee:ff "); got != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("CanonicalMAC = %q", got)
	}
}
