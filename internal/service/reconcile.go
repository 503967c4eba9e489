package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"nettracker/internal/domain"
)

// TransitionKind names a change that opened a new interval
type TransitionKind string

const (
	TransitionAdded    TransitionKind = "added"    // first sighting
	TransitionChanged  TransitionKind = "changed"  // new IP or advertised name
	TransitionReturned TransitionKind = "returned" // seen again after a departure
	TransitionDeparted TransitionKind = "departed" // connected last pass, absent now
)

// Transition describes one newly opened interval
type Transition struct {
	Kind         TransitionKind `json:"kind"`
	MAC          string         `json:"mac"`
	IP           string         `json:"ip"`
	Name         string         `json:"name"`
	PreviousIP   string         `json:"previous_ip,omitempty"`
	PreviousName string         `json:"previous_name,omitempty"`
}

// PassResult summarises one committed pass
type PassResult struct {
	PassID    uuid.UUID `json:"pass_id"`
	At        time.Time `json:"at"`
	FirstPass bool      `json:"first_pass"`

	Observed   int `json:"observed"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`

	Added       int `json:"added"`
	Extended    int `json:"extended"`
	Changed     int `json:"changed"`
	Returned    int `json:"returned"`
	Departed    int `json:"departed"`
	StillAbsent int `json:"still_absent"`

	Transitions []Transition `json:"transitions,omitempty"`
}

// reconcile diffs one parsed scan against the intervals left open by the
// previous pass and writes the outcome through p. All reads happen before
// the first write.
func reconcile(ctx context.Context, p *Pass, scan domain.ScanResult) (*PassResult, error) {
	result := &PassResult{
		PassID:     p.ID,
		At:         p.Now,
		Observed:   len(scan.Observations),
		Skipped:    len(scan.Skipped),
		Duplicates: scan.Duplicates,
	}

	previous, err := p.Log.MostRecentPass(ctx)
	if err != nil {
		return nil, fmt.Errorf("read most recent pass: %w", err)
	}
	if previous != nil && p.Now.Before(*previous) {
		return nil, fmt.Errorf("pass time %s is before the previous pass at %s",
			p.Now.Format(time.RFC3339Nano), previous.Format(time.RFC3339Nano))
	}
	result.FirstPass = previous == nil

	open, err := p.Log.OpenIntervals(ctx, previous)
	if err != nil {
		return nil, fmt.Errorf("read open intervals: %w", err)
	}

	for _, obs := range scan.Observations {
		prior, seen := open[obs.MAC]
		if !seen {
			if _, err := p.Log.Append(ctx, domain.StatusConnected, obs.IP, obs.MAC, obs.AdvertisedName, p.Now); err != nil {
				return nil, fmt.Errorf("record new device %s: %w", obs.MAC, err)
			}
			result.Added++
			result.Transitions = append(result.Transitions, Transition{
				Kind: TransitionAdded, MAC: obs.MAC, IP: obs.IP, Name: obs.AdvertisedName,
			})
			continue
		}
		delete(open, obs.MAC)

		kind, changed := stayedTransition(prior, obs)
		if !changed {
			if err := p.Log.Extend(ctx, prior, p.Now); err != nil {
				return nil, fmt.Errorf("extend %s: %w", obs.MAC, err)
			}
			result.Extended++
			continue
		}

		// The new interval belongs to the device just observed
		if _, err := p.Log.Append(ctx, domain.StatusConnected, obs.IP, obs.MAC, obs.AdvertisedName, p.Now); err != nil {
			return nil, fmt.Errorf("record %s device %s: %w", kind, obs.MAC, err)
		}
		if kind == TransitionReturned {
			result.Returned++
		} else {
			result.Changed++
		}
		result.Transitions = append(result.Transitions, Transition{
			Kind:         kind,
			MAC:          obs.MAC,
			IP:           obs.IP,
			Name:         obs.AdvertisedName,
			PreviousIP:   prior.IP.Value,
			PreviousName: prior.Device.AdvertisedName,
		})
	}

	// Whatever is left was known last pass and is missing from this scan
	missing := make([]string, 0, len(open))
	for mac := range open {
		missing = append(missing, mac)
	}
	sort.Strings(missing)

	for _, mac := range missing {
		prior := open[mac]
		if !prior.Connected() {
			if err := p.Log.Extend(ctx, prior, p.Now); err != nil {
				return nil, fmt.Errorf("extend absent %s: %w", mac, err)
			}
			result.StillAbsent++
			continue
		}

		if _, err := p.Log.Append(ctx, domain.StatusNotConnected, prior.IP.Value, prior.Device.MAC, prior.Device.AdvertisedName, p.Now); err != nil {
			return nil, fmt.Errorf("record departure of %s: %w", mac, err)
		}
		result.Departed++
		result.Transitions = append(result.Transitions, Transition{
			Kind: TransitionDeparted, MAC: prior.Device.MAC, IP: prior.IP.Value, Name: prior.Device.AdvertisedName,
		})
	}

	return result, nil
}

// stayedTransition decides whether a device seen in both passes needs a new
// interval. A device whose last interval is "not connected" always does,
// otherwise only an IP or name change opens one.
func stayedTransition(prior *domain.Entry, obs domain.Observation) (TransitionKind, bool) {
	if !prior.Connected() {
		return TransitionReturned, true
	}
	if prior.IP.Value != obs.IP || prior.Device.AdvertisedName != obs.AdvertisedName {
		return TransitionChanged, true
	}
	return "", false
}
