package solar

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// TimeLayout is how every tool writes timestamps.
	TimeLayout = "2006-01-02 15:04:05"

	// HERTimeLayout is the HER catalog layout (GEV_START etc).
	HERTimeLayout = "2006-01-02T15:04:05"

	// GEVTimeLayout is the GOES event list layout (GSTART etc), e.g. "01-Jan-2011 00:12:00".
	GEVTimeLayout = "02-Jan-2006 15:04:05"
)

// mixedLayouts are tried in order by ParseMixedTime.
var mixedLayouts = []string{
	TimeLayout,
	HERTimeLayout,
	GEVTimeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

// ParseTime parses value with layout in UTC. GEV month abbreviations are
// accepted in any letter case.
func ParseTime(value, layout string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if layout == GEVTimeLayout {
		value = normaliseMonth(value)
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", value)
	}
	return t, nil
}

// ParseMixedTime accepts any of the layouts that appear across catalog and
// observation files. Slash dates are day first.
func ParseMixedTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if strings.Count(value, "-") == 2 && len(value) > 6 && isAlpha(value[3]) {
		value = normaliseMonth(value)
	}
	for _, layout := range mixedLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognised timestamp %q", value)
}

// FormatTime writes t in TimeLayout, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// normaliseMonth turns "01-JAN-2011 ..." into "01-Jan-2011 ...".
func normaliseMonth(value string) string {
	if len(value) < 7 || value[2] != '-' || value[6] != '-' {
		return value
	}
	month := value[3:6]
	return value[:3] + strings.ToUpper(month[:1]) + strings.ToLower(month[1:]) + value[6:]
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
