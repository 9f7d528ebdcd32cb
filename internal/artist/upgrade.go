package artist

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/store"
)

// snapshot is the stored edition captured before an upgrade
type snapshot struct {
	artist  *domain.Artist
	edition *domain.Edition
	data    []byte
}

// UpgradeAll moves every instance to version `to` in one transaction.
// Each edition is snapshotted under its instance's layout before the switch and
// must read back byte-identical afterwards, and must migrate to the new layout
// with appended fields at their zero value. within runs in the same transaction.
func (s *Service) UpgradeAll(ctx context.Context, to layout.Version, within func(tx store.Store) error) (int64, error) {
	s.upgrade.Lock()
	defer s.upgrade.Unlock()

	now := s.clock.Now()
	var upgraded int64
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		artists, err := tx.ListArtists(ctx)
		if err != nil {
			return fmt.Errorf("failed to list artists: %w", err)
		}

		var snapshots []snapshot
		for _, artist := range artists {
			from := layout.Version(artist.Version)
			if err := layout.CheckUpgrade(from, to); err != nil {
				return fmt.Errorf("%w: artist %s: %v", domain.ErrInvalidConfig, artist.Address.Hex(), err)
			}

			editions, err := tx.ListEditions(ctx, artist.Address)
			if err != nil {
				return fmt.Errorf("failed to list editions: %w", err)
			}
			for _, ed := range editions {
				data, err := layout.EncodeEdition(from, ed)
				if err != nil {
					return fmt.Errorf("failed to snapshot edition %d of %s: %w", ed.ID, artist.Address.Hex(), err)
				}
				snapshots = append(snapshots, snapshot{artist: artist, edition: ed, data: data})
			}
		}

		upgraded, err = tx.SetArtistVersions(ctx, uint8(to))
		if err != nil {
			return fmt.Errorf("failed to set artist versions: %w", err)
		}

		for _, snap := range snapshots {
			if err := verifySnapshot(ctx, tx, snap, to); err != nil {
				return err
			}
		}

		for _, artist := range artists {
			if layout.Version(artist.Version) == to {
				continue
			}
			err := appendEvent(ctx, tx, domain.NewSaleEvent(domain.EventTypeUpgraded, artist.Address, 0, domain.EventData{
				Version: uint8(to),
			}, now))
			if err != nil {
				return err
			}
		}

		if within != nil {
			return within(tx)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.InfoCtx(ctx, "Artist instances upgraded",
		zap.Uint8("version", uint8(to)),
		zap.Int64("count", upgraded))

	return upgraded, nil
}

func verifySnapshot(ctx context.Context, tx store.Store, snap snapshot, to layout.Version) error {
	from := layout.Version(snap.artist.Version)

	reread, err := tx.GetEdition(ctx, snap.artist.Address, snap.edition.ID)
	if err != nil {
		return fmt.Errorf("failed to re-read edition: %w", err)
	}
	if reread == nil {
		return fmt.Errorf("edition %d of %s vanished during upgrade", snap.edition.ID, snap.artist.Address.Hex())
	}

	after, err := layout.EncodeEdition(from, reread)
	if err != nil {
		return err
	}
	if !bytes.Equal(snap.data, after) {
		return fmt.Errorf("edition %d of %s changed during upgrade", snap.edition.ID, snap.artist.Address.Hex())
	}

	migrated, err := layout.MigrateEdition(snap.data, from, to)
	if err != nil {
		return fmt.Errorf("failed to migrate edition %d: %w", snap.edition.ID, err)
	}
	current, err := layout.EncodeEdition(to, reread)
	if err != nil {
		return err
	}
	if !bytes.Equal(migrated, current) {
		return fmt.Errorf("edition %d of %s does not read back under v%d", snap.edition.ID, snap.artist.Address.Hex(), to)
	}
	return nil
}
