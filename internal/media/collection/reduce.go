package collection

import (
	"github.com/hbomb79/Abode/internal/media"
)

// Config caps the two sub-sequences of a collection. A zero value for
// either ceiling adopts the default.
type Config struct {
	MaxImages int `yaml:"max_images" env:"COLLECTION_MAX_IMAGES" env-default:"10"`
	MaxVideos int `yaml:"max_videos" env:"COLLECTION_MAX_VIDEOS" env-default:"5"`
}

const (
	DefaultMaxImages = 10
	DefaultMaxVideos = 5
)

func (config Config) ceiling(kind media.Kind) int {
	if kind == media.Video {
		if config.MaxVideos > 0 {
			return config.MaxVideos
		}
		return DefaultMaxVideos
	}

	if config.MaxImages > 0 {
		return config.MaxImages
	}
	return DefaultMaxImages
}

// Reduce applies one event to the prior state and returns the new
// state alongside any rejections. It is a pure function: the prior
// state is never mutated, duplicates are suppressed silently (first
// occurrence wins), and ceilings are enforced before admission so that
// already-admitted entries are never evicted or truncated.
func Reduce(prior State, event Event, config Config) (State, []Rejection) {
	next := prior.clone()

	switch ev := event.(type) {
	case Hydrated:
		// Hydrated entries are previously persisted, already-canonical
		// URLs; they seed the uploaded sub-list so that later additions
		// of either provenance append after them.
		admit(&next, media.Image, media.Uploaded, ev.Images, config)
		admit(&next, media.Video, media.Uploaded, ev.Videos, config)
		return next, nil

	case UploadSettled:
		rejected := admit(&next, ev.Kind, media.Uploaded, ev.URLs, config)
		return next, capacityRejection(ev.Kind, rejected)

	case URLAdded:
		rejected := admit(&next, ev.Kind, media.Pasted, []string{ev.URL}, config)
		return next, capacityRejection(ev.Kind, rejected)

	case ItemRemoved:
		removeAt(next.kind(ev.Kind), ev.Index)
		return next, nil
	}

	return next, nil
}

// admit appends each URL to the sub-list selected by provenance,
// skipping duplicates silently and stopping at the per-kind ceiling.
// The URLs that could not be admitted due to the ceiling are returned.
func admit(state *State, kind media.Kind, provenance media.Provenance, urls []string, config Config) (overCapacity []string) {
	ks := state.kind(kind)
	ceiling := config.ceiling(kind)

	for _, url := range urls {
		if url == "" || ks.contains(url) {
			continue
		}

		if len(ks.combined()) >= ceiling {
			overCapacity = append(overCapacity, url)
			continue
		}

		e := entry{
			item: media.Item{URL: url, Kind: kind, Provenance: provenance},
			seq:  state.nextSeq,
		}
		state.nextSeq++

		if provenance == media.Uploaded {
			ks.uploaded = append(ks.uploaded, e)
		} else {
			ks.pasted = append(ks.pasted, e)
		}
	}

	return overCapacity
}

// removeAt resolves a combined-sequence index on to the correct
// sub-list: indices below the uploaded sub-list length address it
// directly, the remainder address the pasted sub-list. Out of range
// indices are ignored.
func removeAt(ks *kindState, index int) {
	if index < 0 {
		return
	}

	if index < len(ks.uploaded) {
		ks.uploaded = append(ks.uploaded[:index], ks.uploaded[index+1:]...)
		return
	}

	index -= len(ks.uploaded)
	if index < len(ks.pasted) {
		ks.pasted = append(ks.pasted[:index], ks.pasted[index+1:]...)
	}
}

// capacityRejection folds the over-capacity URLs of one event in to a
// single rejection, so a batch that overflows the ceiling surfaces one
// capacity error rather than one per file.
func capacityRejection(kind media.Kind, urls []string) []Rejection {
	if len(urls) == 0 {
		return nil
	}

	return []Rejection{{Kind: kind, Reason: CapacityExceeded, URLs: urls}}
}
