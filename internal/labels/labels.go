// Package labels resolves device identities to canonical display labels and
// fixed display slots.
package labels

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// SlotUnmapped is the slot for a label with no configured grid position.
const SlotUnmapped = -1

// Map is the on-disk label configuration.
type Map struct {
	// Labels maps device id to a free-form label ("Washer 7", "W7", "W07").
	Labels map[string]string `yaml:"labels"`
	// Slots maps canonical label to display grid position.
	Slots map[string]int `yaml:"slots"`
}

// Resolver performs idempotent identity -> label -> slot lookups.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	labels map[string]string
	slots  map[string]int
}

var labelPattern = regexp.MustCompile(`(?i)^\s*(washer|wash|dryer|dry|w|d)?[\s\-_#]*0*(\d{1,3})\s*$`)

// New builds a resolver from a label map, normalizing every configured label.
func New(m Map) (*Resolver, error) {
	r := &Resolver{
		labels: make(map[string]string, len(m.Labels)),
		slots:  make(map[string]int, len(m.Slots)),
	}

	for id, raw := range m.Labels {
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("labels: device %q has an empty label", id)
		}
		r.labels[id] = canonical(raw, "")
	}

	owner := make(map[int]string, len(m.Slots))
	for raw, slot := range m.Slots {
		if slot < 0 {
			return nil, fmt.Errorf("labels: slot for %q must be >= 0, got %d", raw, slot)
		}
		label := canonical(raw, "")
		if prev, ok := owner[slot]; ok && prev != label {
			return nil, fmt.Errorf("labels: slot %d used by %q and %q", slot, prev, label)
		}
		owner[slot] = label
		r.slots[label] = slot
	}

	return r, nil
}

// LoadFile reads a YAML label map. An empty path yields an empty resolver.
func LoadFile(path string) (*Resolver, error) {
	if path == "" {
		return New(Map{})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse label map: %w", err)
	}
	if len(m.Labels) == 0 && len(m.Slots) == 0 {
		return nil, errors.New("labels: label map is empty")
	}
	return New(m)
}

// Normalize converts a naming variant into the zero-padded form (W07, D12).
// A bare number takes its prefix from typ.
func Normalize(name string, typ logic.DeviceType) (string, bool) {
	m := labelPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}

	prefix := prefixFor(typ)
	if m[1] != "" {
		if strings.HasPrefix(strings.ToLower(m[1]), "w") {
			prefix = "W"
		} else {
			prefix = "D"
		}
	}
	if prefix == "" {
		return "", false
	}

	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s%02d", prefix, n), true
}

func canonical(raw string, typ logic.DeviceType) string {
	if label, ok := Normalize(raw, typ); ok {
		return label
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

func prefixFor(typ logic.DeviceType) string {
	switch typ {
	case logic.TypeWasher:
		return "W"
	case logic.TypeDryer:
		return "D"
	}
	return ""
}

// Label returns the canonical label for a device from configuration or its
// upstream name.
func (r *Resolver) Label(id, name string, typ logic.DeviceType) (string, bool) {
	if label, ok := r.labels[id]; ok {
		return label, true
	}
	return Normalize(name, typ)
}

// Slot returns the display slot for a canonical label.
func (r *Resolver) Slot(label string) int {
	if slot, ok := r.slots[label]; ok {
		return slot
	}
	return SlotUnmapped
}

// Pass resolves labels for one poll. Devices with no resolvable label get a
// positional label by first-seen order within their type.
type Pass struct {
	r    *Resolver
	seen map[logic.DeviceType]int
}

// NewPass starts label resolution for one poll.
func (r *Resolver) NewPass() *Pass {
	return &Pass{r: r, seen: make(map[logic.DeviceType]int)}
}

// Resolve returns the label and slot for a device in this poll.
func (p *Pass) Resolve(id, name string, typ logic.DeviceType) (string, int) {
	p.seen[typ]++
	if label, ok := p.r.Label(id, name, typ); ok {
		return label, p.r.Slot(label)
	}

	prefix := prefixFor(typ)
	if prefix == "" {
		prefix = "X"
	}
	return fmt.Sprintf("%s-%d", prefix, p.seen[typ]), SlotUnmapped
}
