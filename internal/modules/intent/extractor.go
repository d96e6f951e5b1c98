// README: Keyword-gated regex extractors for flight, hotel, city and activity intents.
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const placeName = `[\p{L}][\p{L}\p{M}\s.'()&-]*?`

var (
	flightKeywords   = []string{"flight", "fly"}
	hotelKeywords    = []string{"hotel", "accommodation", "stay"}
	cityKeywords     = []string{"city", "cities", "places"}
	activityKeywords = []string{"activity", "activities", "things to do", "attractions"}
	tripKeywords     = []string{"tour", "trip", "vacation"}
	greetingKeywords = []string{"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening", "howdy"}

	originRe      = regexp.MustCompile(`(?i)\bfrom\s+(` + placeName + `)\s+(?:to|and)\b`)
	destinationRe = regexp.MustCompile(`(?i)\bto\s+(` + placeName + `)\s*(?:\b(?:on|departing|leaving|return|returning|coming|for|with|next)\b|[,.!?;]|\d|$)`)
	passengersRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:adults?|people|persons|passengers?|travell?ers?)\b`)

	hotelLocationRe    = regexp.MustCompile(`(?i)\b(?:in|at)\s+(.+?)\s*(?:\bfor\b|[.,!?;]|$)`)
	cityCodeRe         = regexp.MustCompile(`\(([A-Z]{3})\)`)
	cityCodeStripRe    = regexp.MustCompile(`\s*\([A-Z]{3}\)`)
	countryRe          = regexp.MustCompile(`(?i)\b(?:in|within)\s+(.+?)\s*(?:\b(?:like|named|called|with|that|for)\b|[.,!?;]|$)`)
	cityKeywordRe      = regexp.MustCompile(`(?i)\b(?:like|named|called)\s+(.+?)\s*(?:[.,!?;]|$)`)
	activityLocationRe = regexp.MustCompile(`(?i)\b(?:in|at|near|around)\s+(.+?)\s*(?:\bfor\b|[.,!?;]|$)`)
)

// Extractor parses structured travel parameters out of free text. It never fails: a
// message that does not carry an intent simply yields ok == false.
type Extractor struct {
	now func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used to resolve dates written without a year.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Flight requires both an origin and a destination; a partial match yields nothing.
func (e *Extractor) Flight(message string) (FlightIntent, bool) {
	text := strings.TrimSpace(message)
	if !containsAny(strings.ToLower(text), flightKeywords) {
		return FlightIntent{}, false
	}

	origin := originRe.FindStringSubmatchIndex(text)
	if origin == nil {
		return FlightIntent{}, false
	}
	rest := text[origin[3]:]
	dest := destinationRe.FindStringSubmatch(rest)
	if dest == nil {
		return FlightIntent{}, false
	}

	result := FlightIntent{
		Origin:      cleanPlace(text[origin[2]:origin[3]]),
		Destination: cleanPlace(dest[1]),
		Adults:      1,
	}
	if result.Origin == "" || result.Destination == "" {
		return FlightIntent{}, false
	}
	result.DepartureDate, result.ReturnDate = e.travelDates(text)
	if m := passengersRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			result.Adults = n
		}
	}
	return result, true
}

// Hotel extracts the stay location and an optional explicit city code.
func (e *Extractor) Hotel(message string) (HotelIntent, bool) {
	text := strings.TrimSpace(message)
	if !containsAny(strings.ToLower(text), hotelKeywords) {
		return HotelIntent{}, false
	}
	phrase, ok := hotelPhrase(text)
	if !ok {
		return HotelIntent{}, false
	}

	var result HotelIntent
	if code := cityCodeRe.FindStringSubmatch(phrase); code != nil {
		c := code[1]
		result.CityCode = &c
		phrase = cityCodeStripRe.ReplaceAllString(phrase, "")
	}
	result.Location = cleanPlace(phrase)
	if result.Location == "" {
		if result.CityCode == nil {
			return HotelIntent{}, false
		}
		result.Location = *result.CityCode
	}
	return result, true
}

// hotelPhrase picks among the "in X"/"at X" phrases: the last one carrying a city code,
// else the last one, so "stay at a hotel in Paris" resolves to Paris.
func hotelPhrase(text string) (string, bool) {
	var last, coded string
	for off := 0; off < len(text); {
		loc := hotelLocationRe.FindStringSubmatchIndex(text[off:])
		if loc == nil {
			break
		}
		phrase := text[off+loc[2] : off+loc[3]]
		last = phrase
		if cityCodeRe.MatchString(phrase) {
			coded = phrase
		}
		off += loc[0] + 1
	}
	if coded != "" {
		return coded, true
	}
	return last, last != ""
}

// City extracts the country phrase and an optional keyword.
func (e *Extractor) City(message string) (CityIntent, bool) {
	text := strings.TrimSpace(message)
	if !containsAny(strings.ToLower(text), cityKeywords) {
		return CityIntent{}, false
	}
	m := countryRe.FindStringSubmatch(text)
	if m == nil {
		return CityIntent{}, false
	}
	result := CityIntent{Country: cleanPlace(m[1])}
	if result.Country == "" {
		return CityIntent{}, false
	}
	if k := cityKeywordRe.FindStringSubmatch(text); k != nil {
		if kw := cleanPlace(k[1]); kw != "" {
			result.Keyword = &kw
		}
	}
	return result, true
}

func (e *Extractor) Activity(message string) (ActivityIntent, bool) {
	text := strings.TrimSpace(message)
	if !containsAny(strings.ToLower(text), activityKeywords) {
		return ActivityIntent{}, false
	}
	m := activityLocationRe.FindStringSubmatch(text)
	if m == nil {
		return ActivityIntent{}, false
	}
	loc := cleanPlace(m[1])
	if loc == "" {
		return ActivityIntent{}, false
	}
	return ActivityIntent{Location: loc}, true
}

// IsGreeting is a plain substring test, so "within" or "things" count as greetings too.
func IsGreeting(message string) bool {
	return containsAny(strings.ToLower(message), greetingKeywords)
}

// IsPlanRequest reports whether the user asks for a summary of the trip so far.
func IsPlanRequest(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "plan") && containsAny(lower, tripKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func cleanPlace(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, ` "'.,`)
}
