// Package links builds outbound purchase and library search URLs for a book.
package links

import (
	"net/url"
	"strings"
)

const defaultCountry = "US"

type amazonStore struct {
	domain string
	tag    string
}

var amazonStores = map[string]amazonStore{
	"US": {"amazon.com", "booklinks-20"},
	"CA": {"amazon.ca", "booklinks-ca-20"},
	"GB": {"amazon.co.uk", "booklinks-uk-20"},
	"DE": {"amazon.de", "booklinks-de-20"},
	"FR": {"amazon.fr", "booklinks-fr-20"},
	"JP": {"amazon.co.jp", "booklinks-jp-20"},
	"AU": {"amazon.com.au", "booklinks-au-20"},
	"IN": {"amazon.in", "booklinks-in-20"},
}

var timeZoneCountry = map[string]string{
	"America/New_York":    "US",
	"America/Chicago":     "US",
	"America/Denver":      "US",
	"America/Los_Angeles": "US",
	"America/Anchorage":   "US",
	"Pacific/Honolulu":    "US",
	"America/Phoenix":     "US",
	"America/Toronto":     "CA",
	"America/Vancouver":   "CA",
	"America/Edmonton":    "CA",
	"America/Winnipeg":    "CA",
	"America/Halifax":     "CA",
	"America/St_Johns":    "CA",
	"America/Regina":      "CA",
	"Europe/London":       "GB",
	"Europe/Berlin":       "DE",
	"Europe/Vienna":       "DE",
	"Europe/Zurich":       "DE",
	"Europe/Paris":        "FR",
	"Asia/Tokyo":          "JP",
	"Australia/Sydney":    "AU",
	"Australia/Melbourne": "AU",
	"Australia/Brisbane":  "AU",
	"Australia/Perth":     "AU",
	"Australia/Adelaide":  "AU",
	"Australia/Hobart":    "AU",
	"Australia/Darwin":    "AU",
	"Asia/Kolkata":        "IN",
	"Asia/Calcutta":       "IN",
}

// Links is the set of outbound URLs shown on a book page.
type Links struct {
	Country           string `json:"country"`
	Amazon            string `json:"amazon"`
	WorldCat          string `json:"worldCat"`
	OpenLibrary       string `json:"openLibrary"`
	LibraryOfCongress string `json:"libraryOfCongress"`
}

// Country picks the storefront: an explicit country code we have a store
// for, else the country of an IANA time zone, else US.
func Country(country, timeZone string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	if c == "UK" {
		c = "GB"
	}
	if _, ok := amazonStores[c]; ok {
		return c
	}
	if c, ok := timeZoneCountry[strings.TrimSpace(timeZone)]; ok {
		return c
	}
	return defaultCountry
}

// For builds every link for title and author.
func For(title, author, country string) Links {
	q := searchQuery(title, author)
	return Links{
		Country:           country,
		Amazon:            amazonLink(q, country),
		WorldCat:          "https://www.worldcat.org/search?q=" + q,
		OpenLibrary:       "https://openlibrary.org/search?q=" + q,
		LibraryOfCongress: "https://catalog.loc.gov/vwebv/search?searchArg=" + q,
	}
}

// Amazon returns the affiliate search link for country.
func Amazon(title, author, country string) string {
	return amazonLink(searchQuery(title, author), country)
}

func amazonLink(q, country string) string {
	store, ok := amazonStores[country]
	if !ok {
		store = amazonStores[defaultCountry]
	}
	return "https://www." + store.domain + "/s?k=" + q + "&tag=" + store.tag
}

// searchQuery escapes "title author" with spaces as %20, the way browsers'
// encodeURIComponent does, so the links match the ones the web client builds.
func searchQuery(title, author string) string {
	return strings.ReplaceAll(url.QueryEscape(title+" "+author), "+", "%20")
}
