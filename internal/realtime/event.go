package realtime

import (
	"strings"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

const (
	LiveFeedTopic    = "live-feed"
	matchTopicPrefix = "match:"
)

func MatchTopic(matchID string) string {
	return matchTopicPrefix + strings.TrimSpace(matchID)
}

// ValidTopic accepts the live feed and any non-empty per-match topic.
func ValidTopic(topic string) bool {
	if topic == LiveFeedTopic {
		return true
	}
	return strings.HasPrefix(topic, matchTopicPrefix) && strings.TrimSpace(topic[len(matchTopicPrefix):]) != ""
}

type EventKind string

const (
	EventMatchUpdate  EventKind = "match-update"
	EventGoalScored   EventKind = "goal-scored"
	EventStatusChange EventKind = "status-change"
)

const (
	SideHome = "home"
	SideAway = "away"
)

type GoalDelta struct {
	Side     string      `json:"side"`
	Previous match.Score `json:"previous"`
	Current  match.Score `json:"current"`
	Minute   *int        `json:"minute,omitempty"`
}

type StatusDelta struct {
	Previous match.Status `json:"previous"`
	Current  match.Status `json:"current"`
}

// Event is what subscribers receive. Match carries the full record on
// match-update; the delta fields are set for the other kinds.
type Event struct {
	Kind      EventKind     `json:"event"`
	MatchID   string        `json:"matchId"`
	Match     *match.Record `json:"match,omitempty"`
	Goal      *GoalDelta    `json:"goal,omitempty"`
	Status    *StatusDelta  `json:"status,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func MatchUpdate(record match.Record) Event {
	item := record.Clone()
	return Event{Kind: EventMatchUpdate, MatchID: record.ID, Match: &item}
}

func GoalScored(record match.Record, side string, previous match.Score) Event {
	return Event{
		Kind:    EventGoalScored,
		MatchID: record.ID,
		Goal: &GoalDelta{
			Side:     side,
			Previous: previous,
			Current:  record.Score,
			Minute:   record.Clone().Elapsed,
		},
	}
}

func StatusChanged(record match.Record, previous match.Status) Event {
	return Event{
		Kind:    EventStatusChange,
		MatchID: record.ID,
		Status:  &StatusDelta{Previous: previous, Current: record.Status},
	}
}

// ControlMessage is sent by subscribers to manage topic membership.
type ControlMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

const (
	ControlJoin  = "join-topic"
	ControlLeave = "leave-topic"
)
