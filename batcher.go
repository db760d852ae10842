package mirrorlai

import "unicode/utf8"

// Plan is the outcome of matching collected items against the cache and the
// pending set.
type Plan struct {
	// Immediate holds items whose translation is already cached.
	Immediate []Resolved

	// Batches holds the unique uncached sources, in first-seen order, packed
	// into requests.
	Batches [][]string

	// Targets maps each queued source to every item that carries it, so one
	// translated result reaches all of them.
	Targets map[string][]TranslatableItem

	// Skipped counts items dropped because their source was already in
	// flight from an earlier pass.
	Skipped int
}

// Sources returns every queued source across all batches.
func (p *Plan) Sources() []string {
	return flatten(p.Batches)
}

// PlanBatches resolves items from the cache, claims the remaining sources in
// the pending set and packs them into batches.
//
// Items whose source is pending are dropped: the request that owns the
// source was started by an earlier pass and only updates that pass's items.
func PlanBatches(items []TranslatableItem, state *TranslationState, limits BatchLimits) *Plan {
	plan := &Plan{Targets: make(map[string][]TranslatableItem)}
	var queue []string

	for _, item := range items {
		if _, queued := plan.Targets[item.Source]; queued {
			plan.Targets[item.Source] = append(plan.Targets[item.Source], item)
			continue
		}

		cached, hit, claimed := state.claim(item.Source)
		switch {
		case hit:
			plan.Immediate = append(plan.Immediate, Resolved{Item: item, Translation: cached})
		case !claimed:
			plan.Skipped++
		default:
			plan.Targets[item.Source] = []TranslatableItem{item}
			queue = append(queue, item.Source)
		}
	}

	plan.Batches = PackBatches(queue, limits)
	return plan
}

// PackBatches splits sources into ordered batches. A batch grows while it
// holds fewer than MaxItems strings and the next string fits in the
// character budget. An empty batch always takes the next string, so a single
// oversized string still gets a batch of its own.
func PackBatches(sources []string, limits BatchLimits) [][]string {
	if limits.MaxItems <= 0 {
		limits.MaxItems = MaxBatchItems
	}
	if limits.MaxChars <= 0 {
		limits.MaxChars = MaxBatchChars
	}

	var batches [][]string
	var current []string
	chars := 0

	for _, src := range sources {
		n := utf8.RuneCountInString(src)
		if len(current) > 0 && (len(current) >= limits.MaxItems || chars+n > limits.MaxChars) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, src)
		chars += n
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
