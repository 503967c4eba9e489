package domain

import (
	"regexp"
	"strings"
)

// Observation is one host reported by a single scan
type Observation struct {
	IP             string `json:"ip"`
	MAC            string `json:"mac"`
	AdvertisedName string `json:"advertised_name"`
}

// scanLineRe matches "<ipv4>\t<mac>\t<name>"; anything after the second tab is the name
var scanLineRe = regexp.MustCompile(`^((?:\d{1,3}\.){3}\d{1,3})\t((?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2})\t([^\n]+)`)

// CanonicalMAC returns the stored form of a hardware address
func CanonicalMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// ParseLine parses a single scanner line. Blank lines, banners and anything
// else that does not match the line format return ok == false.
func ParseLine(line string) (Observation, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Observation{}, false
	}

	m := scanLineRe.FindStringSubmatch(line)
	if m == nil {
		return Observation{}, false
	}

	return Observation{
		IP:             m[1],
		MAC:            CanonicalMAC(m[2]),
		AdvertisedName: strings.ToValidUTF8(m[3], "\uFFFD"),
	}, true
}

// ScanResult holds the observations kept from one scan
type ScanResult struct {
	Observations []Observation
	Skipped      []string // lines that did not parse
	Duplicates   int      // parsed lines dropped because their MAC was already seen
}

// ParseScan parses every line and keeps the first observation per MAC, in scan order
func ParseScan(lines []string) ScanResult {
	var result ScanResult
	seen := make(map[string]struct{}, len(lines))

	for _, line := range lines {
		obs, ok := ParseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				result.Skipped = append(result.Skipped, line)
			}
			continue
		}

		if _, dup := seen[obs.MAC]; dup {
			result.Duplicates++
			continue
		}
		seen[obs.MAC] = struct{}{}
		result.Observations = append(result.Observations, obs)
	}

	return result
}

// SplitLines splits raw scanner output into lines
func SplitLines(output string) []string {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}
