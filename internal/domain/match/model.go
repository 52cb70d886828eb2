package match

import (
	"strings"
	"time"
)

// Source tags which collaborator a record came from. Provider records take
// precedence over local ones during merge.
type Source string

const (
	SourceProvider Source = "provider"
	SourceLocal    Source = "local"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
	StatusPostponed Status = "postponed"
)

// Class is a polling/ingestion data class. Each class runs on its own interval.
type Class string

const (
	ClassLive     Class = "live"
	ClassUpcoming Class = "upcoming"
	ClassFinished Class = "finished"
)

var Classes = []Class{ClassLive, ClassUpcoming, ClassFinished}

func ParseClass(value string) (Class, bool) {
	switch Class(strings.ToLower(strings.TrimSpace(value))) {
	case ClassLive:
		return ClassLive, true
	case ClassUpcoming:
		return ClassUpcoming, true
	case ClassFinished:
		return ClassFinished, true
	default:
		return "", false
	}
}

// Statuses returns the record statuses that belong to the class.
func (c Class) Statuses() []Status {
	switch c {
	case ClassLive:
		return []Status{StatusLive}
	case ClassUpcoming:
		return []Status{StatusUpcoming, StatusPostponed}
	case ClassFinished:
		return []Status{StatusFinished}
	default:
		return nil
	}
}

type Participant struct {
	ExternalID string `json:"id,omitempty"`
	Name       string `json:"name"`
	Logo       string `json:"logo,omitempty"`
}

type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func (s Score) Total() int {
	return s.Home + s.Away
}

type SideStatistics struct {
	Possession    int `json:"possession"`
	Shots         int `json:"shots"`
	ShotsOnTarget int `json:"shotsOnTarget"`
	Passes        int `json:"passes"`
}

type Statistics struct {
	Home SideStatistics `json:"home"`
	Away SideStatistics `json:"away"`
}

// Record is the canonical match unit produced by normalization and merge.
type Record struct {
	ID              string      `json:"id"`
	Source          Source      `json:"source"`
	CompetitionID   string      `json:"competitionId,omitempty"`
	CompetitionName string      `json:"competitionName"`
	CompetitionLogo string      `json:"competitionLogo,omitempty"`
	Home            Participant `json:"home"`
	Away            Participant `json:"away"`
	Status          Status      `json:"status"`
	Score           Score       `json:"score"`
	Elapsed         *int        `json:"elapsedMinute,omitempty"`
	Venue           string      `json:"venue,omitempty"`
	Referee         string      `json:"referee,omitempty"`
	StartTime       time.Time   `json:"startTime"`
	Statistics      *Statistics `json:"statistics,omitempty"`
}

// Clone returns a copy that shares no pointers with r.
func (r Record) Clone() Record {
	out := r
	if r.Elapsed != nil {
		v := *r.Elapsed
		out.Elapsed = &v
	}
	if r.Statistics != nil {
		v := *r.Statistics
		out.Statistics = &v
	}
	return out
}

func (r Record) ElapsedMinute() (int, bool) {
	if r.Elapsed == nil {
		return 0, false
	}
	return *r.Elapsed, true
}

// CompetitionKey is the grouping key: the competition id, or the name when
// the record carries no id.
func (r Record) CompetitionKey() string {
	if id := strings.TrimSpace(r.CompetitionID); id != "" {
		return "id:" + id
	}
	return "name:" + strings.TrimSpace(r.CompetitionName)
}

func CloneRecords(items []Record) []Record {
	if items == nil {
		return nil
	}
	out := make([]Record, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
