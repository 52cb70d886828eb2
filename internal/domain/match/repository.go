package match

import "context"

// Repository exposes local store reads.
type Repository interface {
	ListByStatus(ctx context.Context, statuses ...Status) ([]LocalDocument, error)
}

// Writer is the admin write path into the local store.
type Writer interface {
	Upsert(ctx context.Context, doc LocalDocument) error
	Delete(ctx context.Context, id string) (bool, error)
}

type Store interface {
	Repository
	Writer
}

// FixtureProvider reads fixtures from the remote sports-data provider.
type FixtureProvider interface {
	FetchLive(ctx context.Context) ([]ProviderFixture, error)
	FetchUpcoming(ctx context.Context, windowDays int) ([]ProviderFixture, error)
	FetchFinished(ctx context.Context, lookbackDays int) ([]ProviderFixture, error)
}
