// Package service implements presence reconciliation for nettracker.
//
// # Passes
//
// A pass takes the lines of one network scan, parses them into observations
// and compares them with the intervals the previous pass left open. Devices
// seen with unchanged attributes have their interval extended; new devices,
// devices with a new IP or advertised name, and devices coming back after a
// departure get a new "connected" interval; devices that disappeared get a
// "not connected" interval. Everything a pass writes is committed in one
// transaction.
//
// Each pass owns a Pass value holding its transaction, Registry and
// HistoryLog. None of them are shared between passes.
//
// # Events
//
// After a commit, PresenceService publishes one event per opened interval
// and a pass summary on its EventBus, if one is configured.
package service
