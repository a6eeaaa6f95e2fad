package event

import "time"

// Lifecycle events published by the convoy controller. Consumers (history
// persistence) read them one tick later.

type EventStarted struct {
	RunID        string
	StartedAt    time.Time
	Participants int
}

type EventEnded struct {
	RunID      string
	EndedAt    time.Time
	Reason     string // "completed" or "stopped"
	FinalPhase int
}

type PhaseAdvanced struct {
	RunID      string
	Phase      int // zero-based
	MaxEconomy int
	At         time.Time
}

type RewardGranted struct {
	RunID     string
	PlayerID  uint64
	Amount    int
	Persisted bool
	At        time.Time
}

type PlayerEvicted struct {
	RunID    string
	PlayerID uint64
	At       time.Time
}
