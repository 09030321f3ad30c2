// Package services implements the claim archive and its moderation workflow.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/ports"
)

// Keys under which the repository persists its collections.
const (
	KeyEntries     = "hit_entries_v1"
	KeySubmissions = "hit_submissions_v1"
	KeyViews       = "hit_views_v1"
	KeySeeded      = "hit_demo_seeded_v1"
)

// CategoryAll disables the category filter.
const CategoryAll = "All"

// seededFlag is the stored value of KeySeeded once demo content exists.
const seededFlag = "1"

// ErrEmptyClaim is returned when a submission has no claim text.
var ErrEmptyClaim = errors.New("claim text is required")

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// generateID returns a new opaque identifier with the given prefix.
func generateID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

// ContentRepository owns entries, submissions and view counts.
// Every mutation is a read-modify-write of whole collections run inside one
// store transaction, so writers in other processes sharing the store cannot
// interleave with it.
type ContentRepository struct {
	store ports.KVStore

	subsMu      sync.RWMutex
	subscribers map[int]func(entities.ChangeEvent)
	nextSubID   int
}

// NewContentRepository creates a new ContentRepository backed by store.
func NewContentRepository(store ports.KVStore) *ContentRepository {
	return &ContentRepository{
		store:       store,
		subscribers: make(map[int]func(entities.ChangeEvent)),
	}
}

// Subscribe registers fn to be called after every persisted mutation.
// The returned function removes the subscription.
func (r *ContentRepository) Subscribe(fn func(entities.ChangeEvent)) func() {
	r.subsMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subscribers, id)
		r.subsMu.Unlock()
	}
}

func (r *ContentRepository) notify(events ...entities.ChangeEvent) {
	r.subsMu.RLock()
	fns := make([]func(entities.ChangeEvent), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		fns = append(fns, fn)
	}
	r.subsMu.RUnlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// ListEntries returns all entries in insertion order.
func (r *ContentRepository) ListEntries(ctx context.Context) ([]entities.Entry, error) {
	return loadEntries(ctx, r.store)
}

// FindEntry returns the entry with the given ID, or nil if not found.
func (r *ContentRepository) FindEntry(ctx context.Context, id string) (*entities.Entry, error) {
	entries, err := loadEntries(ctx, r.store)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// AddEntry stores a new entry with a fresh ID and timestamps.
func (r *ContentRepository) AddEntry(ctx context.Context, in entities.EntryInput) (*entities.Entry, error) {
	var entry *entities.Entry
	err := r.store.Update(ctx, func(tx ports.KVTx) error {
		var err error
		entry, err = addEntryTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.notify(entities.ChangeEvent{Kind: entities.ChangeEntryAdded, SubjectID: entry.ID})
	return entry, nil
}

func addEntryTx(ctx context.Context, tx ports.KVTx, in entities.EntryInput) (*entities.Entry, error) {
	entries, err := loadEntries(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	entry := entities.Entry{
		ID:                 generateID("entry"),
		Title:              in.Title,
		Category:           in.Category,
		Verdict:            in.Verdict.OrDefault(),
		Confidence:         in.Confidence,
		Tags:               limitTags(in.Tags),
		Claim:              in.Claim,
		Evidence:           copyStrings(in.Evidence),
		Context:            in.Context,
		Links:              copyStrings(in.Links),
		CreatedAt:          now,
		UpdatedAt:          now,
		SourceSubmissionID: in.SourceSubmissionID,
	}

	entries = append(entries, entry)
	if err := saveJSON(ctx, tx, KeyEntries, entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// appendEntries stores already-built entries, skipping IDs that exist.
// It returns the number of entries appended.
func (r *ContentRepository) appendEntries(ctx context.Context, batch []entities.Entry) (int, error) {
	var events []entities.ChangeEvent
	err := r.store.Update(ctx, func(tx ports.KVTx) error {
		entries, err := loadEntries(ctx, tx)
		if err != nil {
			return err
		}

		fresh := newEntries(entries, batch)
		if len(fresh) == 0 {
			return nil
		}
		if err := saveJSON(ctx, tx, KeyEntries, append(entries, fresh...)); err != nil {
			return err
		}
		for _, e := range fresh {
			events = append(events, entities.ChangeEvent{Kind: entities.ChangeEntryAdded, SubjectID: e.ID})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.notify(events...)
	return len(events), nil
}

// newEntries returns the entries of batch whose ID is neither in existing
// nor repeated earlier in batch.
func newEntries(existing, batch []entities.Entry) []entities.Entry {
	seen := make(map[string]struct{}, len(existing)+len(batch))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
	}

	var fresh []entities.Entry
	for _, e := range batch {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh
}

// ListSubmissions returns the pending submissions in insertion order.
func (r *ContentRepository) ListSubmissions(ctx context.Context) ([]entities.Submission, error) {
	return loadSubmissions(ctx, r.store)
}

// FindSubmission returns the submission with the given ID, or nil if not found.
func (r *ContentRepository) FindSubmission(ctx context.Context, id string) (*entities.Submission, error) {
	subs, err := loadSubmissions(ctx, r.store)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].ID == id {
			return &subs[i], nil
		}
	}
	return nil, nil
}

// AddSubmission queues a new submission. A blank claim is rejected with
// ErrEmptyClaim and nothing is stored.
func (r *ContentRepository) AddSubmission(ctx context.Context, in entities.SubmissionInput) (*entities.Submission, error) {
	if strings.TrimSpace(in.Claim) == "" {
		return nil, ErrEmptyClaim
	}

	sub := entities.Submission{
		ID:         generateID("sub"),
		Title:      in.Title,
		Category:   in.Category,
		Claim:      in.Claim,
		Confidence: in.Confidence,
		Tags:       limitTags(in.Tags),
		Links:      copyStrings(in.Links),
		CreatedAt:  timeNow().UTC(),
	}

	err := r.store.Update(ctx, func(tx ports.KVTx) error {
		subs, err := loadSubmissions(ctx, tx)
		if err != nil {
			return err
		}
		return saveJSON(ctx, tx, KeySubmissions, append(subs, sub))
	})
	if err != nil {
		return nil, err
	}

	r.notify(entities.ChangeEvent{Kind: entities.ChangeSubmissionAdded, SubjectID: sub.ID})
	return &sub, nil
}

// RemoveSubmission removes the submission with the given ID.
// Removing an unknown ID is a no-op.
func (r *ContentRepository) RemoveSubmission(ctx context.Context, id string) error {
	var removed bool
	err := r.store.Update(ctx, func(tx ports.KVTx) error {
		var err error
		removed, err = removeSubmissionTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		r.notify(entities.ChangeEvent{Kind: entities.ChangeSubmissionRemoved, SubjectID: id})
	}
	return nil
}

func removeSubmissionTx(ctx context.Context, tx ports.KVTx, id string) (bool, error) {
	subs, err := loadSubmissions(ctx, tx)
	if err != nil {
		return false, err
	}

	kept := subs[:0]
	for _, s := range subs {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(subs) {
		return false, nil
	}

	if err := saveJSON(ctx, tx, KeySubmissions, kept); err != nil {
		return false, err
	}
	return true, nil
}

// RecordView increments the view counter of an entry and returns the new
// count. Unknown IDs get a counter too.
func (r *ContentRepository) RecordView(ctx context.Context, entryID string) (int, error) {
	var count int
	err := r.store.Update(ctx, func(tx ports.KVTx) error {
		views, err := loadViews(ctx, tx)
		if err != nil {
			return err
		}
		views[entryID]++
		count = views[entryID]
		return saveJSON(ctx, tx, KeyViews, views)
	})
	if err != nil {
		return 0, err
	}

	r.notify(entities.ChangeEvent{Kind: entities.ChangeViewRecorded, SubjectID: entryID})
	return count, nil
}

// ViewCount returns how many times an entry was opened.
func (r *ContentRepository) ViewCount(ctx context.Context, entryID string) (int, error) {
	views, err := loadViews(ctx, r.store)
	if err != nil {
		return 0, err
	}
	return views[entryID], nil
}

// Views returns all view counters.
func (r *ContentRepository) Views(ctx context.Context) (entities.ViewCounts, error) {
	return loadViews(ctx, r.store)
}

// FilterEntries returns the entries matching category and query, in storage
// order. See MatchEntries for the matching rules.
func (r *ContentRepository) FilterEntries(ctx context.Context, category, query string) ([]entities.Entry, error) {
	entries, err := loadEntries(ctx, r.store)
	if err != nil {
		return nil, err
	}
	return MatchEntries(entries, category, query), nil
}

// Categories returns the distinct entry categories, sorted.
func (r *ContentRepository) Categories(ctx context.Context) ([]string, error) {
	entries, err := loadEntries(ctx, r.store)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Category != "" {
			set[e.Category] = struct{}{}
		}
	}

	cats := make([]string, 0, len(set))
	for c := range set {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, nil
}

// IsSeeded reports whether demo content has been written.
func (r *ContentRepository) IsSeeded(ctx context.Context) (bool, error) {
	return isSeeded(ctx, r.store)
}

func isSeeded(ctx context.Context, rd ports.KVReader) (bool, error) {
	raw, found, err := rd.Get(ctx, KeySeeded)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", KeySeeded, err)
	}
	return found && string(raw) == seededFlag, nil
}

// seedIfEmpty writes entries, an empty queue and empty view counters and
// sets the seed flag, unless entries exist or the flag is already set.
// The check and the writes share one transaction.
func (r *ContentRepository) seedIfEmpty(ctx context.Context, entries []entities.Entry) (bool, error) {
	seeded := false
	err := r.store.Update(ctx, func(tx ports.KVTx) error {
		existing, err := loadEntries(ctx, tx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		done, err := isSeeded(ctx, tx)
		if err != nil || done {
			return err
		}

		if err := saveJSON(ctx, tx, KeyEntries, entries); err != nil {
			return err
		}
		if err := saveJSON(ctx, tx, KeySubmissions, []entities.Submission{}); err != nil {
			return err
		}
		if err := saveJSON(ctx, tx, KeyViews, entities.ViewCounts{}); err != nil {
			return err
		}
		if err := tx.Set(ctx, KeySeeded, []byte(seededFlag)); err != nil {
			return fmt.Errorf("writing %s: %w", KeySeeded, err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		r.notify(entities.ChangeEvent{Kind: entities.ChangeSeeded})
	}
	return seeded, nil
}

func loadEntries(ctx context.Context, rd ports.KVReader) ([]entities.Entry, error) {
	entries, err := loadJSON[[]entities.Entry](ctx, rd, KeyEntries)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []entities.Entry{}
	}
	return entries, nil
}

func loadSubmissions(ctx context.Context, rd ports.KVReader) ([]entities.Submission, error) {
	subs, err := loadJSON[[]entities.Submission](ctx, rd, KeySubmissions)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []entities.Submission{}
	}
	return subs, nil
}

func loadViews(ctx context.Context, rd ports.KVReader) (entities.ViewCounts, error) {
	views, err := loadJSON[entities.ViewCounts](ctx, rd, KeyViews)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = entities.ViewCounts{}
	}
	return views, nil
}

// loadJSON decodes the value stored under key. A missing or unparsable
// value yields the zero value of T without an error.
func loadJSON[T any](ctx context.Context, rd ports.KVReader, key string) (T, error) {
	var zero T

	raw, found, err := rd.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("reading %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return zero, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, nil
	}
	return v, nil
}

func saveJSON(ctx context.Context, tx ports.KVTx, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	if err := tx.Set(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// MatchEntries filters entries by category and free-text query.
// An empty category or CategoryAll matches everything; otherwise the match
// is exact. The query is matched case-insensitively as a substring of the
// entry's title, category, verdict, claim, context, tags and links.
func MatchEntries(entries []entities.Entry, category, query string) []entities.Entry {
	q := strings.ToLower(strings.TrimSpace(query))

	result := make([]entities.Entry, 0, len(entries))
	for _, e := range entries {
		if category != "" && category != CategoryAll && e.Category != category {
			continue
		}
		if q != "" && !strings.Contains(searchText(e), q) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func searchText(e entities.Entry) string {
	parts := []string{
		e.Title,
		e.Category,
		string(e.Verdict),
		e.Claim,
		e.Context,
		strings.Join(e.Tags, " "),
		strings.Join(e.Links, " "),
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// TopTags returns the most frequent tags across entries, most frequent
// first. Ties keep the order in which tags were first seen. A limit <= 0
// returns every tag.
func TopTags(entries []entities.Entry, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		for _, t := range e.Tags {
			if _, ok := counts[t]; !ok {
				order = append(order, t)
			}
			counts[t]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

// limitTags copies tags, keeping at most entities.MaxTags.
func limitTags(tags []string) []string {
	if len(tags) > entities.MaxTags {
		tags = tags[:entities.MaxTags]
	}
	return copyStrings(tags)
}

// copyStrings returns a copy of s that is never nil, so it encodes as [].
func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
