// Package repository defines the storage contracts for nettracker.
//
// A Store owns the persisted presence history: the ip, status and devices
// identity tables, the entry history log and the network_history view that
// projects the latest entry per device. Every reconciliation pass runs inside
// one Tx obtained from Store.Begin, so a pass is committed whole or not at all.
//
// # Implementations
//
// The sqlite subpackage keeps everything in a single database file and is the
// default. The postgres subpackage keeps the tables in a dedicated schema
// (network by default) and installs a plpgsql trigger that upper-cases
// hardware addresses.
//
// # Errors
//
// Implementations wrap driver errors with ErrStorage or ErrSchema so callers
// can classify failures with errors.Is.
package repository
