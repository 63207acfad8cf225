package models

// EncounterSession is the stats unit for one bounded usage period.
// Created by StartSession, mutated in place by TrackMessage while active
// (EndTime == nil), finalized by EndSession and never mutated again.
type EncounterSession struct {
	SessionID        string `json:"sessionId"`
	Date             string `json:"date"` // Local calendar day, YYYY-MM-DD
	StartTime        int64  `json:"startTime"` // Unix milliseconds
	EndTime          *int64 `json:"endTime"`
	Duration         int64  `json:"duration"` // Seconds
	MessageCount     int    `json:"messageCount"`
	UserMessageCount int    `json:"userMessageCount"`
	AIMessageCount   int    `json:"aiMessageCount"`
	NoteStyle        string `json:"noteStyle"`
	Specialty        string `json:"specialty"`
	CustomGoal       string `json:"customGoal"`
}

// StatsBlob is the persisted stats document (whole-blob overwrite).
type StatsBlob struct {
	Sessions    []EncounterSession `json:"sessions"`
	LastUpdated int64              `json:"lastUpdated"`
}

// DayActivity reports aggregated activity for one calendar day of the
// trailing 7-day window.
type DayActivity struct {
	Date         string `json:"date"`
	DayName      string `json:"dayName"` // Short weekday name, e.g. "Mon"
	SessionCount int    `json:"sessionCount"`
	Minutes      int64  `json:"minutes"`
	Messages     int    `json:"messages"`
}

// StatsSummary aggregates the full session history.
type StatsSummary struct {
	TotalSessions int           `json:"totalSessions"`
	TotalMessages int           `json:"totalMessages"`
	TotalMinutes  int64         `json:"totalMinutes"`
	CurrentStreak int           `json:"currentStreak"`
	LongestStreak int           `json:"longestStreak"`
	Last7Days     []DayActivity `json:"last7Days"`
}

// StatsExport is the downloadable export artifact.
type StatsExport struct {
	ExportDate string             `json:"exportDate"` // ISO-8601
	Sessions   []EncounterSession `json:"sessions"`
}
