package mapping

import "cms_mirror/internal/domain"

// ResolveTags maps external tag references to known tags. References that
// do not resolve are dropped: the tag may not be synced yet or may have been
// deleted. Duplicates are collapsed, keeping first-seen order.
func ResolveTags(refs []string, lookup map[string]domain.Tag) []domain.Tag {
	tags := make([]domain.Tag, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			continue
		}
		tag, ok := lookup[ref]
		if !ok {
			continue
		}
		seen[ref] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// TagLookup indexes tags by external ID.
func TagLookup(tags []domain.Tag) map[string]domain.Tag {
	lookup := make(map[string]domain.Tag, len(tags))
	for _, t := range tags {
		lookup[t.ExternalID] = t
	}
	return lookup
}
