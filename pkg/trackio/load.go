package trackio

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"streamcurate/pkg/tract"
)

// LoadAll decodes every track file concurrently and merges them into a
// single tractogram in argument order, so the result is stable no
// matter which file finishes first.
func LoadAll(ctx context.Context, paths []string) (*tract.Tractogram, error) {
	if len(paths) == 0 {
		return nil, errors.New("no track files given")
	}
	parts := make([]*tract.Tractogram, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := Load(path)
			if err != nil {
				return err
			}
			parts[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	merged := parts[0]
	for _, part := range parts[1:] {
		merged.AppendTractogram(part)
	}
	return merged, nil
}
