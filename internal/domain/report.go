package domain

// ============================================================
// Reporting — admin dashboard overview
// ============================================================

// CommandStat is a single row of the most-viewed ranking.
type CommandStat struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Views  int    `json:"views"`
	Copies int    `json:"copies"`
}

// Overview aggregates the numbers behind the admin dashboard panels.
// Produced in one response so the panels render together.
type Overview struct {
	TotalUsers      int            `json:"total_users"`
	UsersByStatus   map[string]int `json:"users_by_status"`
	TotalCommands   int            `json:"total_commands"`
	ActiveCommands  int            `json:"active_commands"`
	ByCategory      map[string]int `json:"commands_by_category"`
	ByLevel         map[string]int `json:"commands_by_level"`
	TotalViews      int            `json:"total_views"`
	TotalCopies     int            `json:"total_copies"`
	// Process-lifetime counters, reset on restart. They cover the window
	// between the persisted totals above and the current instant.
	ViewsSinceStart  int `json:"views_since_start"`
	CopiesSinceStart int `json:"copies_since_start"`
	TotalFavorites  int            `json:"total_favorites"`
	MostViewed      []CommandStat  `json:"most_viewed"`
	GeneratedAtUnix int64          `json:"generated_at"`
}
