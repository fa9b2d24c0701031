package hek

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

func jsonResponse(t *testing.T, status int, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func flareJSON(peak, class, instrument string) map[string]any {
	return map[string]any{
		"event_starttime": "2013-11-08T04:20:00",
		"event_peaktime":  peak,
		"event_endtime":   "2013-11-08T05:10:00",
		"fl_goescls":      class,
		"hpc_x":           -612.3,
		"hpc_y":           -271.9,
		"obs_instrument":  instrument,
		"ar_noaanum":      11890,
	}
}

func TestSearchFlaresFollowsPages(t *testing.T) {
	var pages []string
	client := NewClient("https://hek.example.com/her/", time.Second)
	client.SetPageSize(2)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if req.URL.Path != "/her" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if q.Get("event_type") != "fl" || q.Get("result_limit") != "2" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		if q.Get("event_starttime") != "2013-11-08T00:00:00" {
			t.Fatalf("unexpected start: %s", q.Get("event_starttime"))
		}
		pages = append(pages, q.Get("page"))

		page, _ := strconv.Atoi(q.Get("page"))
		var result []map[string]any
		switch page {
		case 1:
			result = []map[string]any{
				flareJSON("2013-11-08T04:26:00", "X1.1", "GOES"),
				flareJSON("2013-11-08T09:30:00", "C1.0", "GOES"),
			}
		case 2:
			result = []map[string]any{
				flareJSON("2013-11-08T07:00:00", "M2.3", "AIA"),
			}
		}
		return jsonResponse(t, http.StatusOK, map[string]any{"result": result, "overmax": false}), nil
	}))

	start := time.Date(2013, 11, 8, 0, 0, 0, 0, time.UTC)
	flares, err := client.SearchFlares(context.Background(), Query{Start: start, End: start.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 || pages[0] != "1" || pages[1] != "2" {
		t.Fatalf("expected pages 1 and 2, got %v", pages)
	}
	if len(flares) != 3 {
		t.Fatalf("expected 3 flares, got %d", len(flares))
	}
}

func TestSearchEventsAppliesClassThreshold(t *testing.T) {
	client := NewClient("https://hek.example.com/her", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.RawQuery, "FL_GOESCls") {
			t.Fatalf("class filter must not be sent to HEK: %s", req.URL.RawQuery)
		}
		result := []map[string]any{
			flareJSON("2013-11-08T09:30:00", "C10", "GOES"),
			flareJSON("2013-11-08T04:26:00", "X1.1", "GOES"),
			flareJSON("2013-11-08T05:00:00", "C2.5", "GOES"),
			flareJSON("2013-11-08T06:00:00", "", "GOES"),
		}
		return jsonResponse(t, http.StatusOK, map[string]any{"result": result}), nil
	}))

	start := time.Date(2013, 11, 8, 0, 0, 0, 0, time.UTC)
	events, err := client.SearchEvents(context.Background(), Query{
		Start:    start,
		End:      start.Add(24 * time.Hour),
		MinClass: solar.MustParseGOESClass("C2.5"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events above C2.5, got %d", len(events))
	}
	if events[0].Class.String() != "X1.1" || events[1].Class.String() != "C10.0" {
		t.Fatalf("unexpected order/classes: %s, %s", events[0].Class, events[1].Class)
	}
	if events[0].NOAAAR != 11890 || events[0].Source != solar.SourceHEK {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestSearchFlaresHTTPError(t *testing.T) {
	client := NewClient("https://hek.example.com/her", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusServiceUnavailable, map[string]any{}), nil
	}))

	start := time.Date(2013, 11, 8, 0, 0, 0, 0, time.UTC)
	if _, err := client.SearchFlares(context.Background(), Query{Start: start, End: start.Add(time.Hour)}); err == nil {
		t.Fatalf("expected error for HTTP 503")
	}
}

func TestSearchFlaresRejectsEmptyRange(t *testing.T) {
	client := NewClient("", time.Second)
	start := time.Date(2013, 11, 9, 0, 0, 0, 0, time.UTC)
	if _, err := client.SearchFlares(context.Background(), Query{Start: start, End: start.Add(-24 * time.Hour)}); err == nil {
		t.Fatalf("expected error for reversed range")
	}
}
