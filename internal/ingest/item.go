package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/hbomb79/Abode/pkg/logger"
)

type (
	IngestItemState int

	// IngestItem is one file found in the drop directory, tracked from
	// discovery through classification and upload until its canonical
	// URL has been admitted to the owning listing's media collection.
	IngestItem struct {
		ID                uuid.UUID
		Path              string
		State             IngestItemState
		Trouble           *Trouble
		OverrideListingID *uuid.UUID
	}
)

const (
	IDLE IngestItemState = iota
	IMPORT_HOLD
	INGESTING
	TROUBLED
	COMPLETE
)

var (
	ErrNoTrouble              = errors.New("ingestion has no trouble")
	ErrIngestNotFound         = errors.New("no ingest task could be found")
	ErrResolutionIncompatible = errors.New("provided resolution method is not valid for ingestion trouble")
	ErrResolutionIncomplete   = errors.New("provided resolution context is missing information required to resolve the trouble")
)

// ingest runs the pipeline for one item:
// - Derives the target listing from the items path
// - Classifies the file (image vs video, rejecting unsupported formats)
// - Uploads the file to remote storage for a canonical HTTPS URL
// - Admits that URL in to the listings media collection
// Any failure is wrapped as a Trouble so the caller can stall the item
// rather than abort the service.
func (item *IngestItem) ingest(eventBus event.EventCoordinator, classifier fileClassifier, transport uploadTransport, collections collectionStore, ingestRoot string) error {
	log.Emit(logger.NEW, "Beginning ingestion of item %s\n", item)

	listingID, err := item.resolveListingID(ingestRoot)
	if err != nil {
		return Trouble{error: err, tType: UNKNOWN_LISTING}
	}

	file, err := item.localFile()
	if err != nil {
		return newTrouble(err)
	}

	classification := classifier.ClassifyFile(file)
	kind, ok := classification.Tag.Kind()
	if !ok {
		return Trouble{
			error: fmt.Errorf("'%s' is not a supported image or video format (%s)", file.Name, classification.Reason),
			tType: UNSUPPORTED_MEDIA,
		}
	}

	url, err := transport.Upload(context.Background(), file, kind)
	if err != nil {
		return newTrouble(err)
	}

	target, err := collections.Collection(listingID)
	if err != nil {
		return Trouble{error: err, tType: UNKNOWN_LISTING}
	}

	if rejections := target.Apply(collection.UploadSettled{Kind: kind, URLs: []string{url}}); len(rejections) > 0 {
		return Trouble{
			error: fmt.Errorf("listing %s cannot accept '%s': its %s collection is full", listingID, file.Name, kind),
			tType: COLLECTION_FULL,
		}
	}

	log.Emit(logger.SUCCESS, "Ingested '%s' in to listing %s as %s\n", file.Name, listingID, url)
	eventBus.Dispatch(event.COLLECTION_UPDATE, listingID)
	eventBus.Dispatch(event.INGEST_COMPLETE, item.ID)
	return nil
}

// resolveListingID derives the target listing from the first path
// segment beneath the ingest root, unless a trouble resolution has
// provided an override.
func (item *IngestItem) resolveListingID(ingestRoot string) (uuid.UUID, error) {
	if item.OverrideListingID != nil {
		override := *item.OverrideListingID
		item.OverrideListingID = nil

		log.Emit(logger.INFO, "Retrying ingestion item %s with listing override (from trouble resolution) of %s\n", item, override)
		return override, nil
	}

	relative, err := filepath.Rel(ingestRoot, item.Path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("item path '%s' is outside the ingest directory", item.Path)
	}

	parts := splitPath(relative)
	if len(parts) < 2 {
		return uuid.Nil, fmt.Errorf("file '%s' is not inside a listing directory", item.Path)
	}

	listingID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("directory '%s' does not name a listing", parts[0])
	}

	return listingID, nil
}

// localFile wraps the item's on-disk file as the pre-resolution
// reference the classifier and transport consume.
func (item *IngestItem) localFile() (media.LocalFile, error) {
	info, err := os.Stat(item.Path)
	if err != nil {
		return media.LocalFile{}, fmt.Errorf("cannot access '%s': %w", item.Path, err)
	}

	path := item.Path
	return media.LocalFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

func (item *IngestItem) modtimeDiff() (*time.Duration, error) {
	itemInfo, err := os.Stat(item.Path)
	if err != nil {
		return nil, err
	}

	diff := time.Since(itemInfo.ModTime())
	return &diff, nil
}

func (item *IngestItem) String() string {
	return fmt.Sprintf("IngestItem{ID=%s state=%s}", item.ID, item.State)
}

func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(path), "/")
}

func (s IngestItemState) String() string {
	switch s {
	case IDLE:
		return fmt.Sprintf("IDLE[%d]", s)
	case IMPORT_HOLD:
		return fmt.Sprintf("IMPORT_HOLD[%d]", s)
	case INGESTING:
		return fmt.Sprintf("INGESTING[%d]", s)
	case TROUBLED:
		return fmt.Sprintf("TROUBLED[%d]", s)
	case COMPLETE:
		return fmt.Sprintf("COMPLETE[%d]", s)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", s)
	}
}
