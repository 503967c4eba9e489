package service

import "errors"

var (
	// ErrScanFailed is returned when the scanner could not produce output,
	// including after its privileged retry. No pass is started.
	ErrScanFailed = errors.New("scan failed")
	// ErrPassFailed wraps any failure after the pass transaction was opened
	ErrPassFailed = errors.New("reconciliation pass failed")
)
