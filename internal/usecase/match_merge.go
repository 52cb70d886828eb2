package usecase

import (
	"sort"
	"strings"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

// MergeMatches reconciles provider and local records into one record per id.
// Local records form the baseline and provider records overlay them: the
// provider wins status, score, elapsed minute and statistics, while local
// descriptive fields survive whenever the provider leaves them empty.
//
// The result lists provider-sourced records first and local-only records
// after them, each part ordered by start time descending then id. Merging the
// same inputs always yields the same output.
func MergeMatches(provider, local []match.Record) []match.Record {
	localByID := make(map[string]match.Record, len(local))
	localOrder := make([]string, 0, len(local))
	for _, item := range local {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, exists := localByID[id]; !exists {
			localOrder = append(localOrder, id)
		}
		localByID[id] = item
	}

	providerByID := make(map[string]match.Record, len(provider))
	providerOrder := make([]string, 0, len(provider))
	for _, item := range provider {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, exists := providerByID[id]; !exists {
			providerOrder = append(providerOrder, id)
		}
		providerByID[id] = item
	}

	fromProvider := make([]match.Record, 0, len(providerOrder))
	for _, id := range providerOrder {
		merged := providerByID[id].Clone()
		merged.ID = id
		if base, ok := localByID[id]; ok {
			merged = overlayProvider(base, merged)
		}
		merged.Source = match.SourceProvider
		fromProvider = append(fromProvider, merged)
	}

	localOnly := make([]match.Record, 0, len(localOrder))
	for _, id := range localOrder {
		if _, ok := providerByID[id]; ok {
			continue
		}
		item := localByID[id].Clone()
		item.ID = id
		localOnly = append(localOnly, item)
	}

	sortByStartDesc(fromProvider)
	sortByStartDesc(localOnly)

	return append(fromProvider, localOnly...)
}

// overlayProvider keeps provider values and falls back to the local baseline
// for descriptive fields the provider did not send.
func overlayProvider(base, provider match.Record) match.Record {
	out := provider
	out.CompetitionID = firstNonEmpty(provider.CompetitionID, base.CompetitionID)
	out.CompetitionName = firstNonEmpty(provider.CompetitionName, base.CompetitionName)
	out.CompetitionLogo = firstNonEmpty(provider.CompetitionLogo, base.CompetitionLogo)
	out.Home = overlayParticipant(base.Home, provider.Home)
	out.Away = overlayParticipant(base.Away, provider.Away)
	out.Venue = firstNonEmpty(provider.Venue, base.Venue)
	out.Referee = firstNonEmpty(provider.Referee, base.Referee)
	if out.StartTime.IsZero() {
		out.StartTime = base.StartTime
	}
	return out
}

func overlayParticipant(base, provider match.Participant) match.Participant {
	return match.Participant{
		ExternalID: firstNonEmpty(provider.ExternalID, base.ExternalID),
		Name:       firstNonEmpty(provider.Name, base.Name),
		Logo:       firstNonEmpty(provider.Logo, base.Logo),
	}
}

func sortByStartDesc(items []match.Record) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.After(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
