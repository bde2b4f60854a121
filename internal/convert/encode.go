package convert

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/nusconv/internal/pointcloud"
	"github.com/banshee-data/nusconv/internal/temporal"
)

// encoder runs the payload jobs of one scene on a bounded pool. The first
// failing job cancels the rest; wait returns its error.
type encoder struct {
	b     *Builder
	g     *errgroup.Group
	ctx   context.Context
	scope temporal.Scope
	paths map[string]bool

	scheduled int
}

func newEncoder(ctx context.Context, b *Builder, scope temporal.Scope) *encoder {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	return &encoder{b: b, g: g, ctx: gctx, scope: scope, paths: make(map[string]bool)}
}

// lidar schedules re-encoding of a LiDAR capture into rel.
func (e *encoder) lidar(src, rel string) error {
	scale := e.b.opts.IntensityScale
	return e.schedule(rel, func() error {
		cloud, err := e.b.loader.Load(src)
		if err != nil {
			return fmt.Errorf("load lidar %s: %w", src, err)
		}
		data, err := pointcloud.EncodeLidar(cloud, scale)
		if err != nil {
			return fmt.Errorf("encode lidar %s: %w", src, err)
		}
		return e.b.sink.WritePayload(rel, data)
	})
}

// radar schedules re-encoding of a radar capture into rel.
func (e *encoder) radar(src, rel string) error {
	return e.schedule(rel, func() error {
		cloud, err := e.b.loader.Load(src)
		if err != nil {
			return fmt.Errorf("load radar %s: %w", src, err)
		}
		data, err := pointcloud.EncodeRadar(cloud)
		if err != nil {
			return fmt.Errorf("encode radar %s: %w", src, err)
		}
		return e.b.sink.WritePayload(rel, data)
	})
}

// schedule runs job once per output path. Nothing runs in dry-run mode.
// A path already claimed by another scene is an ErrPayloadCollision.
func (e *encoder) schedule(rel string, job func() error) error {
	if e.paths[rel] {
		return nil
	}
	if owner, ok := e.b.payloads[rel]; ok {
		return fmt.Errorf("%w: %s written by %s/%s/%s and %s/%s/%s", ErrPayloadCollision, rel,
			owner.Log, owner.Team, owner.Scene, e.scope.Log, e.scope.Team, e.scope.Scene)
	}
	e.b.payloads[rel] = e.scope
	e.paths[rel] = true
	e.scheduled++

	if e.b.opts.DryRun {
		return nil
	}
	e.g.Go(func() error {
		if err := e.ctx.Err(); err != nil {
			return err
		}
		return job()
	})
	return nil
}

func (e *encoder) wait() error {
	return e.g.Wait()
}
