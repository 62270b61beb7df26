package status

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// ETag fingerprints the display identity of a snapshot: id, type, label,
// slot and status of every device. Timestamps and counters are excluded so
// that polls producing the same visible state share a fingerprint.
func ETag(snap *Snapshot) string {
	var devices []Device
	if snap != nil {
		devices = make([]Device, len(snap.Devices))
		copy(devices, snap.Devices)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})

	h := sha256.New()
	for _, d := range devices {
		h.Write([]byte(d.ID))
		h.Write([]byte{0x1f})
		h.Write([]byte(d.Type))
		h.Write([]byte{0x1f})
		h.Write([]byte(d.Label))
		h.Write([]byte{0x1f})
		h.Write([]byte(strconv.Itoa(d.Slot)))
		h.Write([]byte{0x1f})
		h.Write([]byte(d.Status))
		h.Write([]byte{'\n'})
	}
	return `"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}

// MatchETag reports whether an If-None-Match header value matches etag.
// Weak validators and comma-separated lists are accepted.
func MatchETag(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
