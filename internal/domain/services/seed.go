package services

import (
	"context"
	"fmt"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

// DemoEntries are the curated entries written to an empty store.
var DemoEntries = []entities.EntryInput{
	{
		Title:      "The Haitian Roots of New Orleans Jazz",
		Category:   "Music",
		Verdict:    entities.VerdictLikely,
		Confidence: "I'm Certain",
		Tags:       []string{"diaspora", "new orleans", "rhythm", "drumming", "vodou"},
		Claim:      "New Orleans jazz has Haitian roots through migration and shared rhythmic traditions.",
		Evidence: []string{
			"Haitian migrants brought musical traditions to Louisiana. We found references from historical sources linking voodoo rhythms to early jazz.",
			"Historical sources document migration links between Saint-Domingue (Haiti) and Louisiana.",
		},
		Context: "Haitian drumming influenced early New Orleans music.",
		Links:   []string{"https://en.wikipedia.org/wiki/Haiti", "https://en.wikipedia.org/wiki/Jazz"},
	},
	{
		Title:      "Haitian Influence in Blues Music",
		Category:   "Music",
		Verdict:    entities.VerdictLikely,
		Confidence: "I'm Certain",
		Tags:       []string{"blues", "music", "history", "diaspora"},
		Claim:      "Haitian musical elements influenced the development of blues music in the American South.",
		Evidence: []string{
			"Migration patterns show Haitian influence in Southern states.",
			"Rhythmic patterns in blues trace back to Haitian traditions.",
		},
		Context: "This connection requires more primary source documentation.",
		Links:   []string{},
	},
	{
		Title:      "Vodou Rituals in Jazz Culture",
		Category:   "Religion / Spirituality",
		Verdict:    entities.VerdictLikely,
		Confidence: "Somewhat sure",
		Tags:       []string{"vodou", "spirituality", "jazz", "culture"},
		Claim:      "Vodou spiritual practices influenced jazz performance culture.",
		Evidence: []string{
			"Documented connections between New Orleans spiritual practices and jazz.",
			"Rhythmic structures mirror vodou ceremonial patterns.",
		},
		Context: "Stronger musicological analysis needed to confirm specific influences.",
		Links:   []string{"https://en.wikipedia.org/wiki/Haitian_Vodou"},
	},
}

// SeedService populates an empty store with demo content.
type SeedService struct {
	repo *ContentRepository
}

// NewSeedService creates a new SeedService.
func NewSeedService(repo *ContentRepository) *SeedService {
	return &SeedService{repo: repo}
}

// SeedIfEmpty writes DemoEntries, an empty queue and empty view counters
// when there are no entries and the store was never seeded. It reports
// whether anything was written. Concurrent callers seed at most once.
func (s *SeedService) SeedIfEmpty(ctx context.Context) (bool, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return false, fmt.Errorf("listing entries: %w", err)
	}
	if len(entries) > 0 {
		return false, nil
	}

	seeded, err := s.repo.IsSeeded(ctx)
	if err != nil {
		return false, err
	}
	if seeded {
		return false, nil
	}

	now := timeNow().UTC()
	demo := make([]entities.Entry, 0, len(DemoEntries))
	for _, in := range DemoEntries {
		demo = append(demo, entities.Entry{
			ID:         generateID("entry"),
			Title:      in.Title,
			Category:   in.Category,
			Verdict:    in.Verdict.OrDefault(),
			Confidence: in.Confidence,
			Tags:       limitTags(in.Tags),
			Claim:      in.Claim,
			Evidence:   copyStrings(in.Evidence),
			Context:    in.Context,
			Links:      copyStrings(in.Links),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	// Checked again inside the write in case another process seeded first.
	seeded, err = s.repo.seedIfEmpty(ctx, demo)
	if err != nil {
		return false, fmt.Errorf("writing demo content: %w", err)
	}
	return seeded, nil
}
