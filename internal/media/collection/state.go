package collection

import (
	"github.com/hbomb79/Abode/internal/media"
)

type (
	// entry wraps an admitted item with its admission sequence number.
	// The sequence is monotonic across both kinds and both provenances,
	// and is what the interleaved (carousel) ordering sorts by.
	entry struct {
		item media.Item
		seq  int
	}

	// kindState holds the two independently ordered sub-lists for one
	// media kind. Uploaded entries always precede pasted entries in the
	// combined per-kind sequence; within each sub-list the order is
	// admission order.
	kindState struct {
		uploaded []entry
		pasted   []entry
	}

	// State is the full, immutable-by-convention state of a media
	// collection. Reduce never mutates its input; callers always adopt
	// the returned value.
	State struct {
		images  kindState
		videos  kindState
		nextSeq int
	}

	// Event is one logical mutation applied to a collection. The
	// concrete variants form the event log the reducer is driven by.
	Event interface {
		isCollectionEvent()
		// kinds reports which media kinds the event touches, which is
		// what decides the consumer emissions for the mutation.
		kinds() []media.Kind
	}

	// Hydrated seeds a collection from previously persisted URL lists.
	// It is dispatched exactly once, when an editing session opens over
	// an existing listing.
	Hydrated struct {
		Images []string
		Videos []string
	}

	// UploadSettled records the successful subset of one settled upload
	// batch, in original submission order. One event is dispatched per
	// batch regardless of how many files it carried.
	UploadSettled struct {
		Kind media.Kind
		URLs []string
	}

	// URLAdded records one accepted, normalized pasted URL.
	URLAdded struct {
		Kind media.Kind
		URL  string
	}

	// ItemRemoved removes the item at the given index of the combined
	// per-kind sequence. The index is resolved against the uploaded
	// sub-list first, then the pasted sub-list.
	ItemRemoved struct {
		Kind  media.Kind
		Index int
	}

	// Rejection describes entries an event could not admit. Capacity
	// rejections surface to the user; duplicate suppression never
	// produces a Rejection as re-pasting an existing link is a common,
	// harmless action.
	Rejection struct {
		Kind   media.Kind
		Reason string
		URLs   []string
	}
)

const CapacityExceeded = "capacity-exceeded"

func (Hydrated) isCollectionEvent()      {}
func (UploadSettled) isCollectionEvent() {}
func (URLAdded) isCollectionEvent()      {}
func (ItemRemoved) isCollectionEvent()   {}

func (Hydrated) kinds() []media.Kind        { return []media.Kind{media.Image, media.Video} }
func (e UploadSettled) kinds() []media.Kind { return []media.Kind{e.Kind} }
func (e URLAdded) kinds() []media.Kind      { return []media.Kind{e.Kind} }
func (e ItemRemoved) kinds() []media.Kind   { return []media.Kind{e.Kind} }

func (state *State) kind(kind media.Kind) *kindState {
	if kind == media.Video {
		return &state.videos
	}

	return &state.images
}

// combined recomputes the deduplicated per-kind sequence as
// uploaded ++ pasted, dropping any entry whose URL already appeared
// earlier in the sequence (first occurrence wins).
func (ks *kindState) combined() []entry {
	seen := make(map[string]bool, len(ks.uploaded)+len(ks.pasted))
	out := make([]entry, 0, len(ks.uploaded)+len(ks.pasted))
	for _, sub := range [][]entry{ks.uploaded, ks.pasted} {
		for _, e := range sub {
			if seen[e.item.URL] {
				continue
			}

			seen[e.item.URL] = true
			out = append(out, e)
		}
	}

	return out
}

func (ks *kindState) contains(url string) bool {
	for _, sub := range [][]entry{ks.uploaded, ks.pasted} {
		for _, e := range sub {
			if e.item.URL == url {
				return true
			}
		}
	}

	return false
}

func (ks *kindState) clone() kindState {
	return kindState{
		uploaded: append([]entry(nil), ks.uploaded...),
		pasted:   append([]entry(nil), ks.pasted...),
	}
}

func (state State) clone() State {
	return State{
		images:  state.images.clone(),
		videos:  state.videos.clone(),
		nextSeq: state.nextSeq,
	}
}
