// Package hek queries the Heliophysics Event Knowledgebase for flare events.
package hek

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultURL is the public HEK event report endpoint.
const DefaultURL = "https://www.lmsal.com/hek/her"

// DefaultPageSize is the HEK result_limit used per request.
const DefaultPageSize = 500

// queryTimeLayout is the timestamp format HEK accepts and returns.
const queryTimeLayout = "2006-01-02T15:04:05"

// returnColumns are the event attributes requested from HEK.
var returnColumns = []string{
	"event_starttime",
	"event_peaktime",
	"event_endtime",
	"fl_goescls",
	"hpc_x",
	"hpc_y",
	"obs_instrument",
	"ar_noaanum",
	"frm_name",
}

// Flare is one FL record as returned by HEK.
type Flare struct {
	StartTime     string  `json:"event_starttime"`
	PeakTime      string  `json:"event_peaktime"`
	EndTime       string  `json:"event_endtime"`
	GOESClass     string  `json:"fl_goescls"`
	HPCX          float64 `json:"hpc_x"`
	HPCY          float64 `json:"hpc_y"`
	ObsInstrument string  `json:"obs_instrument"`
	NOAAAR        int32   `json:"ar_noaanum"`
	FRMName       string  `json:"frm_name"`
}

// Event converts the HEK record into the unified model.
func (f Flare) Event() (solar.Event, error) {
	ev := solar.Event{
		AIAXCen: f.HPCX,
		AIAYCen: f.HPCY,
		NOAAAR:  f.NOAAAR,
		Source:  solar.SourceHEK,
	}

	var err error
	if ev.Start, err = parseHEKTime(f.StartTime); err != nil {
		return solar.Event{}, errors.Wrap(err, "event_starttime")
	}
	if ev.Peak, err = parseHEKTime(f.PeakTime); err != nil {
		return solar.Event{}, errors.Wrap(err, "event_peaktime")
	}
	if ev.End, err = parseHEKTime(f.EndTime); err != nil {
		return solar.Event{}, errors.Wrap(err, "event_endtime")
	}
	if ev.Class, err = solar.ParseGOESClass(f.GOESClass); err != nil {
		return solar.Event{}, err
	}
	return ev, nil
}

type searchResponse struct {
	Result  []Flare `json:"result"`
	Overmax bool    `json:"overmax"`
}

// Query selects flares by time range and optional class threshold.
type Query struct {
	Start time.Time
	End   time.Time

	// MinClass, when set, keeps only flares strictly above this class.
	MinClass solar.GOESClass

	// Instrument, when set, keeps only events reported by that observatory
	// instrument (e.g. "GOES").
	Instrument string
}

// Client is a minimal HEK search client.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// NewClient constructs a client for the HEK endpoint at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: DefaultPageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetPageSize overrides the number of results requested per page.
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// SearchFlares returns every FL event in the query range, following pages
// until HEK returns a short page.
func (c *Client) SearchFlares(ctx context.Context, q Query) ([]Flare, error) {
	if c == nil {
		return nil, errors.New("hek client not initialised")
	}
	if !q.End.After(q.Start) {
		return nil, errors.Errorf("hek: empty time range %s .. %s",
			q.Start.Format(queryTimeLayout), q.End.Format(queryTimeLayout))
	}

	var all []Flare
	for page := 1; ; page++ {
		flares, err := c.fetchPage(ctx, q, page)
		if err != nil {
			return nil, errors.Wrapf(err, "hek page %d", page)
		}
		logrus.Debugf("hek: page %d returned %d events", page, len(flares))

		for _, f := range flares {
			if keep(f, q) {
				all = append(all, f)
			}
		}
		if len(flares) < c.pageSize {
			break
		}
	}
	return all, nil
}

// SearchEvents is SearchFlares converted to the unified model. Records that
// fail to convert are logged and skipped.
func (c *Client) SearchEvents(ctx context.Context, q Query) ([]solar.Event, error) {
	flares, err := c.SearchFlares(ctx, q)
	if err != nil {
		return nil, err
	}

	events := make([]solar.Event, 0, len(flares))
	for i, f := range flares {
		ev, err := f.Event()
		if err != nil {
			logrus.Warnf("hek: skipping event %d: %v", i, err)
			continue
		}
		events = append(events, ev)
	}
	solar.SortByPeak(events)
	return events, nil
}

func (c *Client) fetchPage(ctx context.Context, q Query, page int) ([]Flare, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(q, page), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP GET failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return out.Result, nil
}

func (c *Client) searchURL(q Query, page int) string {
	v := url.Values{}
	v.Set("cosec", "2")
	v.Set("cmd", "search")
	v.Set("type", "column")
	v.Set("event_type", "fl")
	v.Set("event_starttime", q.Start.UTC().Format(queryTimeLayout))
	v.Set("event_endtime", q.End.UTC().Format(queryTimeLayout))
	v.Set("event_coordsys", "helioprojective")
	v.Set("x1", "-1200")
	v.Set("x2", "1200")
	v.Set("y1", "-1200")
	v.Set("y2", "1200")
	v.Set("result_limit", strconv.Itoa(c.pageSize))
	v.Set("page", strconv.Itoa(page))
	v.Set("return", strings.Join(returnColumns, ","))

	// The class threshold is applied locally by keep: HEK compares class
	// strings lexically and would drop "C10" against "> C2.5".
	if q.Instrument != "" {
		setParam(v, 0, "OBS_Instrument", "=", q.Instrument)
	}
	return c.baseURL + "?" + v.Encode()
}

func setParam(v url.Values, n int, name, op, value string) {
	v.Set(fmt.Sprintf("param%d", n), name)
	v.Set(fmt.Sprintf("op%d", n), op)
	v.Set(fmt.Sprintf("value%d", n), value)
}

// keep applies the class threshold by flux and re-checks the instrument.
func keep(f Flare, q Query) bool {
	if !q.MinClass.IsZero() {
		c, err := solar.ParseGOESClass(f.GOESClass)
		if err != nil || c.Compare(q.MinClass) <= 0 {
			return false
		}
	}
	if q.Instrument != "" && !strings.EqualFold(f.ObsInstrument, q.Instrument) {
		return false
	}
	return true
}

func parseHEKTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(queryTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return solar.ParseMixedTime(s)
}
