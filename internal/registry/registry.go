package registry

import (
	"context"
	"errors"
	"iter"
)

// ErrUnexpectedStatus indicates the registry answered with a status other
// than found or not found.
var ErrUnexpectedStatus = errors.New("unexpected registry response")

// Package is one registry match.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Summary string `json:"summary"`
}

// Client searches a package registry.
type Client interface {
	// Search returns the packages matching name. An empty result means the
	// name is not published; an error means the registry could not answer.
	Search(ctx context.Context, name string) ([]Package, error)
}

// Predicate decides whether a module name should be kept.
type Predicate func(ctx context.Context, name string) (bool, error)

// Exists reports whether client has at least one match for name.
func Exists(ctx context.Context, client Client, name string) (bool, error) {
	matches, err := client.Search(ctx, name)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// ExistsIn binds Exists to a client.
func ExistsIn(client Client) Predicate {
	return func(ctx context.Context, name string) (bool, error) {
		return Exists(ctx, client, name)
	}
}

// Filter lazily keeps the items whose key satisfies keep, preserving order
// and duplicates. The first upstream or predicate error is yielded and ends
// the sequence.
func Filter[T any](ctx context.Context, items iter.Seq2[T, error], key func(T) string, keep Predicate) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for item, err := range items {
			if err != nil {
				yield(zero, err)
				return
			}

			ok, err := keep(ctx, key(item))
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok {
				continue
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

// FilterNames keeps the names that exist in client's registry.
func FilterNames(ctx context.Context, client Client, names []string) ([]string, error) {
	var seq iter.Seq2[string, error] = func(yield func(string, error) bool) {
		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}

	kept := []string{}
	for name, err := range Filter(ctx, seq, func(s string) string { return s }, ExistsIn(client)) {
		if err != nil {
			return nil, err
		}
		kept = append(kept, name)
	}
	return kept, nil
}
