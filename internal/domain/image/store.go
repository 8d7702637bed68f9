package image

import "context"

// Store is the metadata store contract. All implementations expose the same
// observable behavior to the query engine; which one is active is a pure
// deployment choice.
type Store interface {
	// Put persists a new record.
	Put(ctx context.Context, record *ImageRecord) error

	// Get returns a record by id, or ErrImageNotFound.
	Get(ctx context.Context, id string) (*ImageRecord, error)

	// List returns all records, in no particular order.
	List(ctx context.Context) ([]*ImageRecord, error)

	// Search returns records matching any token (substring of any keyword or
	// of the original name, case-insensitive). Tokens must be lowercased.
	Search(ctx context.Context, tokens []string) ([]*ImageRecord, error)

	// Delete removes a record by id, or ErrImageNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
