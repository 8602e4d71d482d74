package listing

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/database"
	"github.com/lib/pq"
)

var ErrListingNotFound = errors.New("listing does not exist")

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (store *Store) Create(db database.Queryable, title string, description string) (*Listing, error) {
	var created Listing
	err := db.Get(&created, `
		INSERT INTO listings(id, title, description, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, current_timestamp, current_timestamp)
		RETURNING *
	`, uuid.New(), title, description, DRAFT)
	if err != nil {
		return nil, fmt.Errorf("failed to insert new listing: %w", err)
	}

	return &created, nil
}

func (store *Store) Get(db database.Queryable, id uuid.UUID) (*Listing, error) {
	query, args, err := selectListingBuilder().Where("listings.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select listing query: %w", err)
	}

	var result Listing
	if err := db.Get(&result, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}

		return nil, err
	}

	return &result, nil
}

func (store *Store) GetAll(db database.Queryable) ([]*Listing, error) {
	query, args, err := selectListingBuilder().OrderBy("listings.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list listings query: %w", err)
	}

	var results []Listing
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*Listing, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

// SaveMedia persists the resolved media collection for the listing
// provided, replacing whatever URLs were stored before.
func (store *Store) SaveMedia(db database.Queryable, id uuid.UUID, images []string, videos []string) error {
	result, err := db.Exec(`
		UPDATE listings SET images=$2, videos=$3, updated_at=current_timestamp WHERE id=$1
	`, id, pq.StringArray(images), pq.StringArray(videos))
	if err != nil {
		return fmt.Errorf("failed to save listing media: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrListingNotFound
	}

	return nil
}

func (store *Store) Submit(db database.Queryable, id uuid.UUID) error {
	result, err := db.Exec(`
		UPDATE listings SET state=$2, updated_at=current_timestamp WHERE id=$1
	`, id, SUBMITTED)
	if err != nil {
		return fmt.Errorf("failed to submit listing: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrListingNotFound
	}

	return nil
}

func (store *Store) Delete(db database.Queryable, id uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM listings WHERE id=$1`, id)
	return err
}

func selectListingBuilder() squirrel.SelectBuilder {
	return squirrel.Select("listings.*").From("listings")
}
