package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateExpr = `(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b(?:,?\s+(\d{4}))?`

var (
	departureRe = regexp.MustCompile(`(?i)\b(?:on|departing|leaving)\s+(?:on\s+)?` + dateExpr)
	returnRe    = regexp.MustCompile(`(?i)\b(?:returning|return|coming\s+back)\s+(?:on\s+)?` + dateExpr)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// travelDates finds the departure and return dates. The return phrase is blanked out
// before the departure search so "returning on 5th june" never reads as a departure.
func (e *Extractor) travelDates(text string) (departure, ret *string) {
	searchable := text
	if loc := returnRe.FindStringSubmatchIndex(text); loc != nil {
		ret = e.resolveDate(submatches(text, loc))
		searchable = text[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + text[loc[1]:]
	}
	if loc := departureRe.FindStringSubmatchIndex(searchable); loc != nil {
		departure = e.resolveDate(submatches(searchable, loc))
	}
	return departure, ret
}

func submatches(text string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

// resolveDate turns (day, month, year?) into YYYY-MM-DD. Without a year the next
// occurrence on or after today is used. Impossible dates resolve to nil.
func (e *Extractor) resolveDate(m []string) *string {
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	month, ok := months[strings.ToLower(m[2])[:3]]
	if !ok {
		return nil
	}

	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	year := today.Year()
	if m[3] != "" {
		if year, err = strconv.Atoi(m[3]); err != nil {
			return nil
		}
	} else if time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Before(today) {
		year++
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		return nil
	}
	s := d.Format("2006-01-02")
	return &s
}
