package game

import "wayfarer/internal/entity"

// TimeSnapshot is the `time` field of StateSnapshot (spec §6).
type TimeSnapshot struct {
	GameTime       int    `json:"gameTime"`
	GameTimeString string `json:"gameTimeString"`
	TimeOfDay      string `json:"timeOfDay"`
	Day            int    `json:"day"`
	Season         string `json:"season"`
	Year           int    `json:"year"`
	Weather        string `json:"weather"`
}

// CharactersSnapshot is the `characters` field of StateSnapshot.
type CharactersSnapshot struct {
	Protagonist *entity.Character   `json:"protagonist"`
	NPCs        []*entity.Character `json:"npcs"`
	AtLocation  []*entity.Character `json:"atLocation"`
}

// LocationSnapshot is the `location` field of StateSnapshot.
type LocationSnapshot struct {
	Current    string                       `json:"current"`
	Discovered []string                     `json:"discovered"`
	Visited    []string                     `json:"visited"`
	Database   map[string]*entity.Location  `json:"database"`
}

// QuestStats summarizes quest counts.
type QuestStats struct {
	ActiveCount    int `json:"activeCount"`
	CompletedCount int `json:"completedCount"`
}

// QuestsSnapshot is the `quests` field of StateSnapshot.
type QuestsSnapshot struct {
	Active []*entity.Quest `json:"active"`
	Stats  QuestStats      `json:"stats"`
}

// DialogueStats summarizes conversation counts.
type DialogueStats struct {
	TotalConversations int `json:"totalConversations"`
	ActiveCount        int `json:"activeCount"`
}

// DialogueSnapshot is the `dialogue` field of StateSnapshot.
type DialogueSnapshot struct {
	Stats               DialogueStats             `json:"stats"`
	ActiveConversations []*entity.Conversation    `json:"activeConversations"`
}

// SystemSnapshot is the `system` field of StateSnapshot.
type SystemSnapshot struct {
	Paused          bool    `json:"paused"`
	AutoDetectQuests bool   `json:"autoDetectQuests"`
	RealTimePlayed  float64 `json:"realTimePlayed"`
}

// StateSnapshot is the plain, serializable value returned by getGameState
// (spec §6). No engine references are reachable from it.
type StateSnapshot struct {
	SessionID  string             `json:"sessionId"`
	Seed       int64              `json:"seed"`
	Frame      int                `json:"frame"`
	Time       TimeSnapshot       `json:"time"`
	Characters CharactersSnapshot `json:"characters"`
	Location   LocationSnapshot   `json:"location"`
	Quests     QuestsSnapshot     `json:"quests"`
	Dialogue   DialogueSnapshot   `json:"dialogue"`
	System     SystemSnapshot     `json:"system"`
}
