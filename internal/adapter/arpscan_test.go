package adapter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"
)

type call struct {
	name string
	args []string
}

// fakeRunner replays canned results in order and records every call
type fakeRunner struct {
	results []fakeResult
	calls   []call
}

type fakeResult struct {
	out string
	err error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if len(f.results) == 0 {
		return nil, fmt.Errorf("unexpected call %s %v", name, args)
	}
	r := f.results[0]
	f.results = f.results[1:]
	return []byte(r.out), r.err
}

const arpScanOutput = `Interface: en0, type: EN10MB, MAC: 00:11:22:33:44:55, IPv4: 192.168.1.10
Starting arp-scan 1.9.7 with 256 hosts (https://github.com/royhills/arp-scan)
192.168.1.1	aa:bb:cc:00:00:01	Router Vendor Inc.
192.168.1.20	aa:bb:cc:00:00:02	(Unknown)

2 packets received by filter, 0 packets dropped by kernel
Ending arp-scan 1.9.7: 256 hosts scanned in 1.950 seconds (131.28 hosts/sec). 2 responded
`

func TestArpScanAdapter_Scan(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{{out: arpScanOutput}}}
	adapter := NewArpScanAdapter("en0", WithRunner(runner))

	lines, err := adapter.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(runner.calls))
	}
	got := runner.calls[0]
	if got.name != "arp-scan" || strings.Join(got.args, " ") != "--localnet --interface en0" {
		t.Errorf("unexpected command: %s %v", got.name, got.args)
	}

	var hosts int
	for _, line := range lines {
		if strings.Count(line, "\t") == 2 {
			hosts++
		}
		if line == "" {
			t.Error("blank lines should be dropped")
		}
	}
	if hosts != 2 {
		t.Errorf("expected 2 host lines, got %d in %q", hosts, lines)
	}
}

func TestArpScanAdapter_SudoRetry(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{out: "You need to be root, or arp-scan must be SUID root, to open a link-layer socket.\n", err: errors.New("exit status 1")},
		{out: arpScanOutput},
	}}
	adapter := NewArpScanAdapter("eth0", WithRunner(runner))

	lines, err := adapter.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(runner.calls))
	}
	retry := runner.calls[1]
	if retry.name != "sudo" || strings.Join(retry.args, " ") != "-n arp-scan --localnet --interface eth0" {
		t.Errorf("unexpected retry command: %s %v", retry.name, retry.args)
	}
	if len(lines) == 0 {
		t.Error("expected output from retry")
	}
}

func TestArpScanAdapter_RetryFails(t *testing.T) {
	banner := "link_layer_open: Operation not permitted\n"
	runner := &fakeRunner{results: []fakeResult{
		{out: banner, err: errors.New("exit status 1")},
		{out: "sudo: a password is required\n" + banner, err: errors.New("exit status 1")},
	}}
	adapter := NewArpScanAdapter("en0", WithRunner(runner))

	_, err := adapter.Scan(context.Background())
	if !errors.Is(err, ErrPermission) {
		t.Errorf("expected ErrPermission, got %v", err)
	}
}

func TestArpScanAdapter_NoRetry(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{out: "arp-scan: unknown interface wlan9\n", err: errors.New("exit status 1")},
	}}
	adapter := NewArpScanAdapter("wlan9", WithRunner(runner), WithSudoRetry(false))

	_, err := adapter.Scan(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrPermission) {
		t.Error("interface error is not a permission error")
	}
	if !strings.Contains(err.Error(), "unknown interface wlan9") {
		t.Errorf("expected first output line in error, got %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected no retry, got %d calls", len(runner.calls))
	}
}

func TestArpScanAdapter_NotInstalled(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{{err: exec.ErrNotFound}}}
	adapter := NewArpScanAdapter("en0", WithRunner(runner), WithSudoRetry(false))

	_, err := adapter.Scan(context.Background())
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("expected ErrNotInstalled, got %v", err)
	}
}

func TestArpScanAdapter_CancelledSkipsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{results: []fakeResult{{err: context.Canceled}}}
	adapter := NewArpScanAdapter("en0", WithRunner(runner))

	_, err := adapter.Scan(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected no retry after cancel, got %d calls", len(runner.calls))
	}
}

func TestArpScanAdapter_Options(t *testing.T) {
	adapter := NewArpScanAdapter("en0", WithArpScanTimeout(10*time.Second), WithSudoRetry(false))
	if adapter.timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", adapter.timeout)
	}
	if adapter.sudoRetry {
		t.Error("expected sudo retry disabled")
	}
	if adapter.Name() != "arp-scan" {
		t.Errorf("expected name arp-scan, got %s", adapter.Name())
	}
}

func TestFilterOutput(t *testing.T) {
	out := "You need to be root, or arp-scan must be SUID root\n10.0.0.2\tAA:BB:CC:DD:EE:01\tphone\n\n"
	lines := filterOutput([]byte(out))
	if len(lines) != 1 || lines[0] != "10.0.0.2\tAA:BB:CC:DD:EE:01\tphone" {
		t.Errorf("unexpected lines: %q", lines)
	}

	if got := filterOutput(nil); len(got) != 0 {
		t.Errorf("expected no lines, got %q", got)
	}
}
