package model

// DailyCount is the number of books added on one calendar day (UTC, YYYY-MM-DD).
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// RankedBook is a book with a count used for a leaderboard.
type RankedBook struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// Stats backs the public statistics page.
type Stats struct {
	TotalBooks      int          `json:"totalBooks"`
	TotalReferences int          `json:"totalReferences"`
	DailyBookCounts []DailyCount `json:"dailyBookCounts"`
	MostReferenced  []RankedBook `json:"mostReferenced"`
	MostConnected   []RankedBook `json:"mostConnected"`
}
