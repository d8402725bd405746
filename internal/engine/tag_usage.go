package engine

import (
	"sort"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

// TagUsageDelta returns the usage_count change per tag caused by replacing
// oldRecord with newRecord. Either may be nil: nil old is a first save, nil
// new is a deletion. Only failed records contribute tags. Tags present in
// both records are left out, so re-saving identical content yields no change.
func TagUsageDelta(oldRecord, newRecord *models.TaskRecord) map[uuid.UUID]int {
	oldTags := tagSet(oldRecord.FailureTags())
	newTags := tagSet(newRecord.FailureTags())

	delta := make(map[uuid.UUID]int)
	for id := range newTags {
		if !oldTags[id] {
			delta[id]++
		}
	}
	for id := range oldTags {
		if !newTags[id] {
			delta[id]--
		}
	}
	return delta
}

// ApplyUsage adds delta to count, flooring the result at zero
func ApplyUsage(count, delta int) int {
	count += delta
	if count < 0 {
		return 0
	}
	return count
}

// RecountUsage derives usage counts from scratch: the number of failed
// records that reference each tag. Tags without references map to zero.
func RecountUsage(tags []*models.UserTag, records []*models.TaskRecord) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(tags))
	for _, tag := range tags {
		counts[tag.ID] = 0
	}
	for _, rec := range records {
		for _, id := range rec.FailureTags() {
			if _, ok := counts[id]; ok {
				counts[id]++
			}
		}
	}
	return counts
}

// TagUsageRanking orders tags by usage (most used first), then by name
func TagUsageRanking(tags []*models.UserTag) []*models.UserTag {
	ranked := make([]*models.UserTag, len(tags))
	copy(ranked, tags)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].UsageCount != ranked[j].UsageCount {
			return ranked[i].UsageCount > ranked[j].UsageCount
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func tagSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
