// Package firestore is a document backend on Google Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"

	gcfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/domain"
)

type Config struct {
	ProjectID       string
	CredentialsFile string
}

type Store struct {
	client *gcfirestore.Client
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = gcfirestore.DetectProjectID
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcfirestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !snap.Exists() || snap.Data() == nil {
		return domain.ErrNotFound
	}
	if err := snap.DataTo(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, collection, id string, v any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, v)
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (s *Store) List(ctx context.Context, collection string, fn func(id string, decode docstore.DecodeFunc) error) error {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		decode := func(dst any) error {
			if err := snap.DataTo(dst); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrMalformed, err)
			}
			return nil
		}
		if err := fn(snap.Ref.ID, decode); err != nil {
			return err
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
