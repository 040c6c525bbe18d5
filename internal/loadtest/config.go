package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Players         int           // Number of synthetic players
	PlaysPerPlayer  int           // Plays submitted by each player, in order
	Workers         int           // Number of concurrent workers
	Timeout         time.Duration // HTTP request timeout
	AllTimeCapacity int           // Expected bound of the all-time board
	OutputFile      string        // Optional JSON dump of generated plays
	Verbose         bool          // Enable verbose logging
}

// Play is one submitted game, in the POST /scores wire shape.
type Play struct {
	Nickname     string `json:"nickname"`
	Score        int64  `json:"score"`
	Coins        int64  `json:"coins"`
	GameplayHash string `json:"gameplay_hash"`
	GameDuration int64  `json:"game_duration"`
}

// Row is a leaderboard row as served by the API.
type Row struct {
	Rank      int    `json:"rank"`
	Nickname  string `json:"nickname"`
	Score     int64  `json:"score"`
	Coins     int64  `json:"coins"`
	Date      string `json:"date,omitempty"`
	Timestamp string `json:"timestamp"`
}

type dailyPage struct {
	Date         string `json:"date"`
	TotalPlayers int    `json:"total_players"`
	Leaderboard  []Row  `json:"leaderboard"`
}

type allTimePage struct {
	Leaderboard []Row `json:"leaderboard"`
}

type submitResponse struct {
	Status string `json:"status"`
	Data   struct {
		NewBest     int64 `json:"new_best"`
		CurrentBest int64 `json:"current_best"`
	} `json:"data"`
}

type playerStats struct {
	Nickname  string `json:"nickname"`
	DailyBest struct {
		Score int64 `json:"score"`
		Rank  int   `json:"rank"`
	} `json:"daily_best"`
	AttemptsToday int `json:"attempts_today"`
}

// Stats holds run statistics.
type Stats struct {
	PlaysGenerated int
	PlaysSubmitted int
	Accepted       int
	Rejected       int
	Invalid        int
	Failed         int
	DailyRows      int
	AllTimeRows    int
	Violations     []string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
