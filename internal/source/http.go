package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// machinesResponse is the upstream body. Every field is optional so that a
// missing value decodes to "invalid" rather than failing the whole response.
type machinesResponse struct {
	Machines []json.RawMessage `json:"machines"`
}

// machineRecord keeps the per-device fields raw. A field of the wrong JSON
// type is treated as missing instead of dropping the record.
type machineRecord struct {
	ID    deviceID        `json:"id"`
	Name  json.RawMessage `json:"name"`
	Type  json.RawMessage `json:"type"`
	State json.RawMessage `json:"state"`
}

// deviceID accepts either a JSON string or number.
type deviceID string

func (d *deviceID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = deviceID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Unusable ids are reported as missing
		return nil
	}
	*d = deviceID(n.String())
	return nil
}

// HTTPSource fetches telemetry from the upstream JSON API.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSource creates a source for the given API base URL. token may be empty.
func NewHTTPSource(baseURL, token string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

// Fetch performs GET {baseURL}/outlets/{outletID}/machines.
func (s *HTTPSource) Fetch(ctx context.Context, outletID string) ([]logic.Telemetry, error) {
	endpoint := fmt.Sprintf("%s/outlets/%s/machines", s.baseURL, url.PathEscape(outletID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch machines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var body machinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if body.Machines == nil {
		return nil, fmt.Errorf("%w: missing machines list", ErrMalformed)
	}

	return decodeRecords(body.Machines), nil
}

// decodeRecords converts upstream records into telemetry, skipping records
// that cannot be decoded or attributed to a device.
func decodeRecords(records []json.RawMessage) []logic.Telemetry {
	out := make([]logic.Telemetry, 0, len(records))
	for i, raw := range records {
		var rec machineRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Printf("source: skipping record %d: %v", i, err)
			continue
		}
		id := string(rec.ID)
		if id == "" {
			log.Printf("source: skipping record %d: missing id", i)
			continue
		}
		typ, ok := deviceType(rec.Type)
		if !ok {
			log.Printf("source: skipping record %s: unknown type", id)
			continue
		}

		name, _ := rawString(rec.Name)
		t := logic.Telemetry{ID: id, Name: name, Type: typ}
		decodeState(&t, rec.State)
		out = append(out, t)
	}
	return out
}

// decodeState fills t from the upstream state object. Fields that are
// missing or of the wrong type keep their zero value, which classifies as
// offline (online flag) or invalid counters.
func decodeState(t *logic.Telemetry, raw json.RawMessage) {
	var st map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &st) != nil {
		return
	}

	if v, ok := st["online"]; ok {
		if b, ok := rawBool(v); ok {
			t.Online = b
		} else {
			log.Printf("source: record %s: ignoring online %s", t.ID, v)
		}
	}
	if v, ok := st["time_left_ms"]; ok {
		if n, ok := rawInt(v); ok {
			t.TimeLeftMs = n
		} else {
			log.Printf("source: record %s: ignoring time_left_ms %s", t.ID, v)
		}
	}
	if v, ok := st["total_duration_ms"]; ok {
		if n, ok := rawInt(v); ok {
			t.TotalDurationMs = n
		} else {
			log.Printf("source: record %s: ignoring total_duration_ms %s", t.ID, v)
		}
	}
	if n, ok := rawInt(st["state_code"]); ok {
		t.StateCode = int(n)
	}
	if s, ok := rawString(st["activation_id"]); ok {
		t.ActivationTag = s
	}
	if s, ok := rawString(st["updated_at"]); ok {
		t.LastUpdated = parseTime(s)
	}
}

func rawInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func rawBool(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func deviceType(raw json.RawMessage) (logic.DeviceType, bool) {
	code, ok := rawInt(raw)
	if !ok {
		return "", false
	}
	switch code {
	case typeCodeWasher:
		return logic.TypeWasher, true
	case typeCodeDryer:
		return logic.TypeDryer, true
	}
	return "", false
}

// parseTime accepts RFC 3339 timestamps; anything else yields the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
