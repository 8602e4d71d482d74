package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/ingest"
	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/hbomb79/Abode/internal/upload"
	"github.com/hbomb79/Abode/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// A default event bus which should be used as a NOOP event bus. DO NOT subscribe to this
// inside of a test as the subscribers are not removed between tests.
var defaultEventBus = event.New()

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) ClassifyFile(file media.LocalFile) media.Classification {
	args := m.Called(file.Name)
	//nolint:forcetypeassert
	return args.Get(0).(media.Classification)
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Upload(_ context.Context, file media.LocalFile, kind media.Kind) (string, error) {
	args := m.Called(file.Name, kind)
	return args.String(0), args.Error(1)
}

type mockCollectionStore struct {
	mock.Mock
}

func (m *mockCollectionStore) Collection(listingID uuid.UUID) (*collection.Collection, error) {
	args := m.Called(listingID)
	//nolint:forcetypeassert
	return args.Get(0).(*collection.Collection), args.Error(1)
}

// writeIngestFile drops a file under '<root>/<dir>/<name>' and backdates
// its modtime so discovery treats the copy as settled.
func writeIngestFile(t *testing.T, root string, dir string, name string) string {
	t.Helper()

	listingDir := filepath.Join(root, dir)
	require.Nil(t, os.MkdirAll(listingDir, 0o755))

	path := filepath.Join(listingDir, name)
	require.Nil(t, os.WriteFile(path, []byte("not a real photo"), 0o644))

	stale := time.Now().Add(-time.Minute)
	require.Nil(t, os.Chtimes(path, stale, stale))
	return path
}

func imageClassification() media.Classification {
	return media.Classification{Tag: media.IMAGE_FILE}
}

func rejectedClassification() media.Classification {
	return media.Classification{Tag: media.REJECTED, Reason: media.UNSUPPORTED_FORMAT}
}

func TestDiscoveredFileIsIngestedInToListingCollection(t *testing.T) {
	tempDir := t.TempDir()
	listingID := uuid.New()
	writeIngestFile(t, tempDir, listingID.String(), "kitchen.jpg")

	target := collection.New(collection.Config{})
	classifierMock := new(mockClassifier)
	transportMock := new(mockTransport)
	storeMock := new(mockCollectionStore)
	classifierMock.On("ClassifyFile", "kitchen.jpg").Return(imageClassification())
	transportMock.On("Upload", "kitchen.jpg", media.Image).Return("https://res.cloudinary.com/abode/image/upload/v1/kitchen.jpg", nil)
	storeMock.On("Collection", listingID).Return(target, nil)

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100}, classifierMock, transportMock, storeMock, defaultEventBus)
	require.Nil(t, err)

	srv.DiscoverNewFiles()
	all := srv.GetAllIngests()
	require.Len(t, all, 1)
	assert.Equal(t, ingest.IDLE, all[0].State)

	claimed, err := srv.PerformItemIngest(nil)
	assert.Nil(t, err)
	assert.True(t, claimed)

	item := srv.GetIngest(all[0].ID)
	require.NotNil(t, item)
	assert.Equal(t, ingest.COMPLETE, item.State)
	assert.Nil(t, item.Trouble)
	assert.Equal(t, []string{"https://res.cloudinary.com/abode/image/upload/v1/kitchen.jpg"}, target.URLs(media.Image))

	// No further idle items remain to claim.
	claimed, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)
	assert.False(t, claimed)
}

func TestFileOutsideListingDirectoryStallsUntilListingAssigned(t *testing.T) {
	tempDir := t.TempDir()
	listingID := uuid.New()
	writeIngestFile(t, tempDir, "holiday-snaps", "lounge.png")

	target := collection.New(collection.Config{})
	classifierMock := new(mockClassifier)
	transportMock := new(mockTransport)
	storeMock := new(mockCollectionStore)
	classifierMock.On("ClassifyFile", "lounge.png").Return(imageClassification())
	transportMock.On("Upload", "lounge.png", media.Image).Return("https://res.cloudinary.com/abode/image/upload/v1/lounge.png", nil)
	storeMock.On("Collection", listingID).Return(target, nil)

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100}, classifierMock, transportMock, storeMock, defaultEventBus)
	require.Nil(t, err)

	srv.DiscoverNewFiles()
	_, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)

	all := srv.GetAllIngests()
	require.Len(t, all, 1)
	item := all[0]
	assert.Equal(t, ingest.TROUBLED, item.State)
	require.NotNil(t, item.Trouble)
	assert.Equal(t, ingest.UNKNOWN_LISTING, item.Trouble.Type())
	assert.ElementsMatch(t, []ingest.ResolutionType{ingest.ABORT, ingest.ASSIGN_LISTING}, item.Trouble.AllowedResolutionTypes())

	// Retrying solves nothing when the path cannot name a listing.
	err = srv.ResolveTroubledIngest(item.ID, ingest.RETRY, nil)
	assert.ErrorIs(t, err, ingest.ErrResolutionIncompatible)

	// Assigning without a listing ID in the context is rejected.
	err = srv.ResolveTroubledIngest(item.ID, ingest.ASSIGN_LISTING, map[string]string{})
	assert.ErrorIs(t, err, ingest.ErrResolutionIncomplete)

	err = srv.ResolveTroubledIngest(item.ID, ingest.ASSIGN_LISTING, map[string]string{"listing_id": listingID.String()})
	assert.Nil(t, err)
	assert.Equal(t, ingest.IDLE, srv.GetIngest(item.ID).State)

	_, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)
	assert.Equal(t, ingest.COMPLETE, srv.GetIngest(item.ID).State)
	assert.Equal(t, []string{"https://res.cloudinary.com/abode/image/upload/v1/lounge.png"}, target.URLs(media.Image))
}

func TestUnsupportedFileCanOnlyBeAborted(t *testing.T) {
	tempDir := t.TempDir()
	listingID := uuid.New()
	writeIngestFile(t, tempDir, listingID.String(), "floorplan.pdf")

	classifierMock := new(mockClassifier)
	transportMock := new(mockTransport)
	storeMock := new(mockCollectionStore)
	classifierMock.On("ClassifyFile", "floorplan.pdf").Return(rejectedClassification())

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100}, classifierMock, transportMock, storeMock, defaultEventBus)
	require.Nil(t, err)

	srv.DiscoverNewFiles()
	_, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)

	all := srv.GetAllIngests()
	require.Len(t, all, 1)
	item := all[0]
	assert.Equal(t, ingest.TROUBLED, item.State)
	require.NotNil(t, item.Trouble)
	assert.Equal(t, ingest.UNSUPPORTED_MEDIA, item.Trouble.Type())

	err = srv.ResolveTroubledIngest(item.ID, ingest.RETRY, nil)
	assert.ErrorIs(t, err, ingest.ErrResolutionIncompatible)

	err = srv.ResolveTroubledIngest(item.ID, ingest.ABORT, nil)
	assert.Nil(t, err)
	assert.Nil(t, srv.GetIngest(item.ID))
	assert.Empty(t, srv.GetAllIngests())

	transportMock.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadAuthFailureIsRetryable(t *testing.T) {
	tempDir := t.TempDir()
	listingID := uuid.New()
	writeIngestFile(t, tempDir, listingID.String(), "garden.jpg")

	target := collection.New(collection.Config{})
	classifierMock := new(mockClassifier)
	transportMock := new(mockTransport)
	storeMock := new(mockCollectionStore)
	classifierMock.On("ClassifyFile", "garden.jpg").Return(imageClassification())
	transportMock.On("Upload", "garden.jpg", media.Image).Return("", &upload.AuthFailedError{}).Once()
	transportMock.On("Upload", "garden.jpg", media.Image).Return("https://res.cloudinary.com/abode/image/upload/v1/garden.jpg", nil)
	storeMock.On("Collection", listingID).Return(target, nil)

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100}, classifierMock, transportMock, storeMock, defaultEventBus)
	require.Nil(t, err)

	srv.DiscoverNewFiles()
	_, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)

	all := srv.GetAllIngests()
	require.Len(t, all, 1)
	item := all[0]
	assert.Equal(t, ingest.TROUBLED, item.State)
	require.NotNil(t, item.Trouble)
	assert.Equal(t, ingest.UPLOAD_AUTH_FAILURE, item.Trouble.Type())

	err = srv.ResolveTroubledIngest(item.ID, ingest.RETRY, nil)
	assert.Nil(t, err)

	_, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)
	assert.Equal(t, ingest.COMPLETE, srv.GetIngest(item.ID).State)
	assert.Equal(t, []string{"https://res.cloudinary.com/abode/image/upload/v1/garden.jpg"}, target.URLs(media.Image))
}

func TestFullCollectionStallsIngestion(t *testing.T) {
	tempDir := t.TempDir()
	listingID := uuid.New()
	writeIngestFile(t, tempDir, listingID.String(), "bathroom.jpg")

	target := collection.New(collection.Config{MaxImages: 1})
	target.Hydrate([]string{"https://res.cloudinary.com/abode/image/upload/v1/existing.jpg"}, nil)

	classifierMock := new(mockClassifier)
	transportMock := new(mockTransport)
	storeMock := new(mockCollectionStore)
	classifierMock.On("ClassifyFile", "bathroom.jpg").Return(imageClassification())
	transportMock.On("Upload", "bathroom.jpg", media.Image).Return("https://res.cloudinary.com/abode/image/upload/v1/bathroom.jpg", nil)
	storeMock.On("Collection", listingID).Return(target, nil)

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100}, classifierMock, transportMock, storeMock, defaultEventBus)
	require.Nil(t, err)

	srv.DiscoverNewFiles()
	_, err = srv.PerformItemIngest(nil)
	assert.Nil(t, err)

	all := srv.GetAllIngests()
	require.Len(t, all, 1)
	assert.Equal(t, ingest.TROUBLED, all[0].State)
	require.NotNil(t, all[0].Trouble)
	assert.Equal(t, ingest.COLLECTION_FULL, all[0].Trouble.Type())
	assert.Len(t, target.URLs(media.Image), 1)
}

func TestFreshFilesAreImportHeldUntilModtimeSettles(t *testing.T) {
	tempDir := t.TempDir()
	listingID := uuid.New()

	listingDir := filepath.Join(tempDir, listingID.String())
	require.Nil(t, os.MkdirAll(listingDir, 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(listingDir, "hallway.jpg"), []byte("fresh"), 0o644))

	classifierMock := new(mockClassifier)
	transportMock := new(mockTransport)
	storeMock := new(mockCollectionStore)

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100, RequiredModTimeAgeSeconds: 120}, classifierMock, transportMock, storeMock, defaultEventBus)
	require.Nil(t, err)

	srv.DiscoverNewFiles()
	all := srv.GetAllIngests()
	require.Len(t, all, 1)
	assert.Equal(t, ingest.IMPORT_HOLD, all[0].State)

	// Held items are invisible to the workers.
	claimed, err := srv.PerformItemIngest(nil)
	assert.Nil(t, err)
	assert.False(t, claimed)

	// A re-sync does not duplicate the held item.
	srv.DiscoverNewFiles()
	assert.Len(t, srv.GetAllIngests(), 1)

	assert.Nil(t, srv.RemoveIngest(all[0].ID))
}

func TestRemoveIngestIgnoresUnknownID(t *testing.T) {
	tempDir := t.TempDir()

	srv, err := ingest.New(ingest.Config{IngestPath: tempDir, ForceSyncSeconds: 100}, new(mockClassifier), new(mockTransport), new(mockCollectionStore), defaultEventBus)
	require.Nil(t, err)

	assert.Nil(t, srv.RemoveIngest(uuid.New()))
	assert.ErrorIs(t, srv.ResolveTroubledIngest(uuid.New(), ingest.RETRY, nil), ingest.ErrIngestNotFound)
}
