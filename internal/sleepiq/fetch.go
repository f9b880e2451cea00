package sleepiq

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// snapshotParts holds the records gathered by one fetch cycle before merging.
type snapshotParts struct {
	bed              *Bed
	sides            []*Side
	sleepers         []*Sleeper
	lights           []*Light
	foundation       *Foundation
	foundationStatus *FoundationStatus
	favorite         *SleepNumberFavorite

	responsiveAir *ResponsiveAir
	privacyMode   *PrivacyMode
	footWarming   *FootWarming
}

// FetchBed fetches every resource of the account's bed and assembles them into
// one Bed. Any failure aborts the cycle; no partial Bed is returned.
func (c *Client) FetchBed(ctx context.Context) (*Bed, error) {
	start := time.Now()

	if _, _, err := c.session(ctx); err != nil {
		return nil, err
	}

	var p snapshotParts
	var err error

	if p.bed, err = c.GetBed(ctx); err != nil {
		return nil, err
	}
	bedID := p.bed.BedID

	if err := c.fetchSidesAndSleepers(ctx, bedID, &p); err != nil {
		return nil, err
	}
	if p.lights, err = c.GetLights(ctx, bedID); err != nil {
		return nil, err
	}
	if p.foundation, err = c.GetFoundation(ctx, bedID); err != nil {
		return nil, err
	}
	if p.foundationStatus, err = c.GetFoundationStatus(ctx, bedID); err != nil {
		return nil, err
	}
	features := p.foundation.DecodeFeatures()
	p.foundation.Features = &features

	if p.favorite, err = c.GetFavorite(ctx, bedID); err != nil {
		return nil, err
	}

	if c.extras {
		if p.responsiveAir, err = c.GetResponsiveAir(ctx, bedID); err != nil {
			return nil, err
		}
		if p.privacyMode, err = c.GetPrivacyMode(ctx, bedID); err != nil {
			return nil, err
		}
		if p.footWarming, err = c.GetFootWarming(ctx, bedID); err != nil {
			return nil, err
		}
	}

	bed := assemble(p)

	log.Debug().
		Str("bed_id", bedID).
		Int("lights", len(bed.Lights)).
		Dur("took", time.Since(start)).
		Msg("SleepIQ bed fetched")

	return bed, nil
}

// fetchSidesAndSleepers has no ordering dependency between its two calls.
func (c *Client) fetchSidesAndSleepers(ctx context.Context, bedID string, p *snapshotParts) error {
	if !c.concurrentFetch {
		var err error
		if p.sides, err = c.GetFamilyStatus(ctx, bedID); err != nil {
			return err
		}
		p.sleepers, err = c.GetSleepers(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p.sides, err = c.GetFamilyStatus(gctx, bedID)
		return err
	})
	g.Go(func() error {
		var err error
		p.sleepers, err = c.GetSleepers(gctx)
		return err
	})
	return g.Wait()
}

// assemble joins the records by exact identifier. Unmatched references leave
// their slot empty.
func assemble(p snapshotParts) *Bed {
	bed := p.bed

	for _, l := range p.lights {
		if l.BedID == bed.BedID {
			bed.Lights = append(bed.Lights, l)
		}
	}

	if p.foundation != nil && p.foundation.BedID == bed.BedID {
		bed.Foundation = p.foundation
		if p.foundationStatus != nil && p.foundationStatus.BedID == bed.BedID {
			bed.Foundation.Status = p.foundationStatus
		}
	}

	for _, side := range p.sides {
		if side.BedID != bed.BedID {
			continue
		}

		var sleeperID string
		switch side.Side {
		case Left:
			bed.LeftSide = side
			sleeperID = bed.SleeperLeftID
		case Right:
			bed.RightSide = side
			sleeperID = bed.SleeperRightID
		default:
			continue
		}

		for _, s := range p.sleepers {
			if s.SleeperID != sleeperID {
				continue
			}
			// Copy so a sleeper shared by both sides gets a per-side favorite.
			sleeper := *s
			if p.favorite != nil {
				favorite := p.favorite.For(side.Side)
				sleeper.Favorite = &favorite
			}
			side.Sleeper = &sleeper
			break
		}
	}

	bed.ResponsiveAir = p.responsiveAir
	bed.PrivacyMode = p.privacyMode
	bed.FootWarming = p.footWarming

	return bed
}
