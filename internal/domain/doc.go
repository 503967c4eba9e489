// Package domain defines the core types of the nettracker presence history.
//
// # Observations
//
// An Observation is one (ip, mac, advertised name) triple parsed from a line of
// scanner output. ParseLine never fails loudly: a line that does not match the
// scanner line format is reported as not ok and the caller skips it.
// ParseScan parses a whole scan and collapses repeated hardware addresses,
// keeping the first occurrence.
//
// # Identity records
//
// IPAddress, StatusRecord and Device are the canonical identity rows. They are
// created lazily on first sight and never deleted. Device carries the most
// recently advertised name and an optional operator label.
//
// # History
//
// Entry is one unbroken interval during which a device held a (status, ip)
// pairing. TimeFrom is fixed at creation; TimeTo is bumped on every pass where
// nothing changed and frozen once a transition opens a new entry.
//
// Status is a closed variant (Connected, NotConnected) that is still persisted
// as a lookup row keyed by its string form.
package domain
