// Package adapter implements the host discovery backends of nettracker.
//
// Every backend produces the same output: one "ip\tMAC\tname" line per
// host found on the network. ArpScanAdapter shells out to arp-scan and
// retries once under sudo when the first run fails. NmapAdapter runs an
// nmap ping sweep through github.com/Ullaakut/nmap/v3 and renders the hosts
// it found in the same line format.
//
// Registry selects a backend by the scanner.type configuration value.
package adapter
