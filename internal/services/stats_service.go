package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"aetherscribe/internal/models"
	"aetherscribe/internal/storage"

	"github.com/google/uuid"
)

const statsStorageKey = "aether_scribe_stats"

const dateLayout = "2006-01-02"

// StatsService aggregates per-encounter session records into a rolling
// history and computes activity streaks. It holds at most one active session
// at a time; starting a new session replaces the active slot.
type StatsService struct {
	store *storage.Store

	mu       sync.Mutex
	sessions []models.EncounterSession
	current  *models.EncounterSession
}

// NewStatsService creates the stats service and loads the persisted history.
// A missing or unreadable history starts empty; the in-memory state is
// authoritative for the running process.
func NewStatsService(ctx context.Context, store *storage.Store) *StatsService {
	s := &StatsService{store: store}

	var blob models.StatsBlob
	found, err := store.Get(ctx, statsStorageKey, &blob)
	if err != nil {
		log.Printf("⚠️  [STATS] Failed to load session history: %v", err)
	} else if found {
		s.sessions = blob.Sessions
	}
	return s
}

// StartSession creates the single active encounter session. Any previously
// active session is discarded without being recorded.
func (s *StatsService) StartSession(prefs models.Preferences) models.EncounterSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	noteStyle := prefs.NoteStyle
	if noteStyle == "" {
		noteStyle = "SOAP"
	}
	specialty := prefs.Specialty
	if specialty == "" {
		specialty = "General"
	}

	now := time.Now()
	s.current = &models.EncounterSession{
		SessionID:  generateSessionID(),
		Date:       now.Format(dateLayout),
		StartTime:  now.UnixMilli(),
		EndTime:    nil,
		Duration:   0,
		NoteStyle:  noteStyle,
		Specialty:  specialty,
		CustomGoal: prefs.CustomInstructions,
	}

	log.Printf("📊 [STATS] Encounter started: %s", s.current.SessionID)
	return *s.current
}

// TrackMessage increments the message counters on the active session.
// Without an active session it is a no-op.
func (s *StatsService) TrackMessage(sender, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	s.current.MessageCount++
	if sender == "user" {
		s.current.UserMessageCount++
	} else {
		s.current.AIMessageCount++
	}
}

// EndSession finalizes the active session, appends an immutable copy to the
// history, persists and clears the slot. Without an active session it is a
// no-op.
func (s *StatsService) EndSession(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}

	endTime := time.Now().UnixMilli()
	s.current.EndTime = &endTime
	s.current.Duration = (endTime - s.current.StartTime) / 1000
	s.sessions = append(s.sessions, *s.current)
	sessionID := s.current.SessionID
	s.current = nil
	s.mu.Unlock()

	log.Printf("📊 [STATS] Encounter ended: %s", sessionID)
	return s.save(ctx)
}

// IsSessionActive reports whether an encounter session is in progress.
func (s *StatsService) IsSessionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// GetStatsSummary aggregates totals, streaks and the trailing 7-day window
// over the full session history.
func (s *StatsService) GetStatsSummary() models.StatsSummary {
	s.mu.Lock()
	sessions := make([]models.EncounterSession, len(s.sessions))
	copy(sessions, s.sessions)
	s.mu.Unlock()

	summary := models.StatsSummary{
		TotalSessions: len(sessions),
		Last7Days:     last7DaysActivity(sessions, time.Now()),
	}

	for _, session := range sessions {
		summary.TotalMessages += session.MessageCount
		summary.TotalMinutes += session.Duration / 60
	}

	current, longest := calculateStreaks(sessions, time.Now())
	summary.CurrentStreak = current
	summary.LongestStreak = longest

	return summary
}

// ExportData serializes the full session history with an export timestamp.
// It is read-only and does not mutate state.
func (s *StatsService) ExportData() models.StatsExport {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]models.EncounterSession, len(s.sessions))
	copy(sessions, s.sessions)
	return models.StatsExport{
		ExportDate: time.Now().Format(time.RFC3339),
		Sessions:   sessions,
	}
}

// ClearAll wipes the session history and the active slot, then persists the
// empty history.
func (s *StatsService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.sessions = nil
	s.current = nil
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *StatsService) save(ctx context.Context) error {
	s.mu.Lock()
	blob := models.StatsBlob{
		Sessions:    s.sessions,
		LastUpdated: time.Now().UnixMilli(),
	}
	s.mu.Unlock()

	if err := s.store.Set(ctx, statsStorageKey, blob); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// calculateStreaks reproduces the documented streak algorithm: the current
// streak anchors on today-or-yesterday activity and walks backward through
// consecutive days; the longest streak is the maximal run anywhere, then the
// reported longest is max(longest, current). The tie-break is load-bearing.
func calculateStreaks(sessions []models.EncounterSession, now time.Time) (int, int) {
	if len(sessions) == 0 {
		return 0, 0
	}

	seen := make(map[string]bool)
	var dates []string
	for _, session := range sessions {
		if !seen[session.Date] {
			seen[session.Date] = true
			dates = append(dates, session.Date)
		}
	}
	sort.Strings(dates)

	currentStreak := 0
	longestStreak := 0
	tempStreak := 1

	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	hasRecentActivity := seen[today] || seen[yesterday]

	if hasRecentActivity {
		currentStreak = 1
		for i := len(dates) - 2; i >= 0; i-- {
			if calendarDaysBetween(dates[i], dates[i+1]) == 1 {
				currentStreak++
			} else {
				break
			}
		}
	}

	for i := 1; i < len(dates); i++ {
		if calendarDaysBetween(dates[i-1], dates[i]) == 1 {
			tempStreak++
			if tempStreak > longestStreak {
				longestStreak = tempStreak
			}
		} else {
			tempStreak = 1
		}
	}

	if currentStreak > longestStreak {
		longestStreak = currentStreak
	}
	return currentStreak, longestStreak
}

// calendarDaysBetween differences date-only values, never full timestamps,
// so daylight-saving shifts cannot produce off-by-one day distances.
func calendarDaysBetween(earlier, later string) int {
	a, errA := time.ParseInLocation(dateLayout, earlier, time.UTC)
	b, errB := time.ParseInLocation(dateLayout, later, time.UTC)
	if errA != nil || errB != nil {
		return -1
	}
	return int(b.Sub(a) / (24 * time.Hour))
}

// last7DaysActivity reports today and the 6 preceding calendar days, oldest
// first.
func last7DaysActivity(sessions []models.EncounterSession, now time.Time) []models.DayActivity {
	days := make([]models.DayActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		dateStr := date.Format(dateLayout)

		day := models.DayActivity{
			Date:    dateStr,
			DayName: date.Format("Mon"),
		}
		for _, session := range sessions {
			if session.Date == dateStr {
				day.SessionCount++
				day.Minutes += session.Duration / 60
				day.Messages += session.MessageCount
			}
		}
		days = append(days, day)
	}
	return days
}

// generateSessionID builds a collision-resistant id from a millisecond
// timestamp plus a random suffix, so rapid successive calls stay unique.
func generateSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("encounter_%d_%s", time.Now().UnixMilli(), suffix)
}
