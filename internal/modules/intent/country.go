package intent

import "strings"

// countryCodes maps common country names and aliases to ISO 3166-1 alpha-2 codes.
// Unlisted countries are not guessed.
var countryCodes = map[string]string{
	"united states": "US", "united states of america": "US", "usa": "US", "us": "US", "america": "US",
	"united kingdom": "GB", "uk": "GB", "great britain": "GB", "britain": "GB", "england": "GB",
	"france": "FR",
	"germany": "DE",
	"italy": "IT",
	"spain": "ES",
	"portugal": "PT",
	"netherlands": "NL", "holland": "NL",
	"belgium": "BE",
	"switzerland": "CH",
	"austria": "AT",
	"greece": "GR",
	"ireland": "IE",
	"sweden": "SE",
	"norway": "NO",
	"denmark": "DK",
	"finland": "FI",
	"poland": "PL",
	"czech republic": "CZ", "czechia": "CZ",
	"turkey": "TR", "turkiye": "TR",
	"russia": "RU",
	"canada": "CA",
	"mexico": "MX",
	"brazil": "BR",
	"argentina": "AR",
	"chile": "CL",
	"peru": "PE",
	"colombia": "CO",
	"japan": "JP",
	"china": "CN",
	"south korea": "KR", "korea": "KR",
	"india": "IN",
	"thailand": "TH",
	"vietnam": "VN",
	"indonesia": "ID",
	"malaysia": "MY",
	"singapore": "SG",
	"philippines": "PH",
	"taiwan": "TW",
	"australia": "AU",
	"new zealand": "NZ",
	"egypt": "EG",
	"morocco": "MA",
	"south africa": "ZA",
	"kenya": "KE",
	"united arab emirates": "AE", "uae": "AE",
	"israel": "IL",
	"nepal": "NP",
	"sri lanka": "LK",
	"pakistan": "PK",
	"bangladesh": "BD",
}

// CountryCode resolves a country name or alias, case-insensitively.
func CountryCode(name string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	key = strings.TrimPrefix(key, "the ")
	code, ok := countryCodes[key]
	return code, ok
}
