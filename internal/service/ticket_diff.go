package service

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

type diffEntry struct {
	eventType domain.TicketEventType
	details   map[string]any
}

// ticketDiff collects one note per changed field in the order fields are checked.
type ticketDiff []diffEntry

func (d *ticketDiff) add(eventType domain.TicketEventType, details map[string]any) {
	*d = append(*d, diffEntry{eventType: eventType, details: details})
}

func loadLabels(ctx context.Context, store repository.Store, ids []int64) ([]domain.Label, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	labels, err := store.Labels.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(ids) {
		return nil, apperrors.NewNotFound("label", map[string]any{"missing": missingIDs(ids, labelIDs(labels))})
	}
	return labels, nil
}

func ensureLabels(ctx context.Context, store repository.Store, ids []int64) error {
	_, err := loadLabels(ctx, store, dedupe(ids))
	return err
}

func ensureCategories(ctx context.Context, store repository.Store, ids []int64) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	categories, err := store.Categories.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(categories) != len(ids) {
		found := make([]int64, 0, len(categories))
		for _, c := range categories {
			found = append(found, c.ID)
		}
		return apperrors.NewNotFound("category", map[string]any{"missing": missingIDs(ids, found)})
	}
	return nil
}

// diffLabels returns labels present only in wanted and only in current, each
// sorted by id.
func diffLabels(current, wanted []domain.Label) (added, removed []domain.Label) {
	have := make(map[int64]struct{}, len(current))
	for _, l := range current {
		have[l.ID] = struct{}{}
	}
	want := make(map[int64]struct{}, len(wanted))
	for _, l := range wanted {
		want[l.ID] = struct{}{}
		if _, ok := have[l.ID]; !ok {
			added = append(added, l)
		}
	}
	for _, l := range current {
		if _, ok := want[l.ID]; !ok {
			removed = append(removed, l)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return added, removed
}

func labelIDs(labels []domain.Label) []int64 {
	ids := make([]int64, 0, len(labels))
	for _, l := range labels {
		ids = append(ids, l.ID)
	}
	return ids
}

func missingIDs(wanted, found []int64) []int64 {
	seen := make(map[int64]struct{}, len(found))
	for _, id := range found {
		seen[id] = struct{}{}
	}
	var missing []int64
	for _, id := range wanted {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// dedupe drops repeated ids and sorts the rest.
func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sameIDs(a, b []int64) bool {
	a, b = dedupe(a), dedupe(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameCustomFields(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func derefOrNil[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
