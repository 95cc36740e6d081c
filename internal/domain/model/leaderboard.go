package model

// LeaderboardEntry is the single-entry leaderboard attached to a completed
// practice contest. Virtual contests have a field of one.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"user_id"`
	Handle         string `json:"handle"`
	ProblemsSolved int    `json:"problems_solved"`
	Performance    int    `json:"performance"`
}
