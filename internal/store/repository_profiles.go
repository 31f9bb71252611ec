package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `wallet_id, display_name, title, level, icon_id, frame_id, xp, currency, wins, losses, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.WalletID, &p.DisplayName, &p.Title, &p.Level, &p.IconID, &p.FrameID,
		&p.XP, &p.Currency, &p.Wins, &p.Losses, &p.UpdatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) GetProfile(ctx context.Context, walletID string) (*Profile, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE wallet_id = $1`, walletID)
	return scanProfile(row)
}

// UpsertProfile writes the cosmetic fields of a profile. Totals are only
// changed through ApplyPayout.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO profiles (wallet_id, display_name, title, level, icon_id, frame_id)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (wallet_id) DO UPDATE SET
  display_name = EXCLUDED.display_name,
  title = EXCLUDED.title,
  level = EXCLUDED.level,
  icon_id = EXCLUDED.icon_id,
  frame_id = EXCLUDED.frame_id,
  updated_at = now()`,
		p.WalletID, p.DisplayName, p.Title, p.Level, p.IconID, p.FrameID)
	return err
}

// ApplyPayout adds a match payout to the wallet's totals. A second call for
// the same (wallet, match) leaves totals untouched and reports applied=false.
func (s *Store) ApplyPayout(ctx context.Context, app PayoutApplication) (*Profile, bool, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO profiles (wallet_id) VALUES ($1) ON CONFLICT (wallet_id) DO NOTHING`, app.WalletID); err != nil {
		return nil, false, err
	}
	tag, err := tx.Exec(ctx, `
INSERT INTO payout_applications (id, wallet_id, match_id, is_win, xp_delta, currency_delta)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (wallet_id, match_id) DO NOTHING`,
		NewID(), app.WalletID, app.MatchID, app.IsWin, app.XPDelta, app.CurrencyDelta)
	if err != nil {
		return nil, false, err
	}
	applied := tag.RowsAffected() == 1
	if applied {
		wins, losses := 0, 1
		if app.IsWin {
			wins, losses = 1, 0
		}
		if _, err := tx.Exec(ctx, `
UPDATE profiles SET xp = xp + $2, currency = currency + $3, wins = wins + $4, losses = losses + $5, updated_at = now()
WHERE wallet_id = $1`,
			app.WalletID, app.XPDelta, app.CurrencyDelta, wins, losses); err != nil {
			return nil, false, err
		}
	}
	p, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE wallet_id = $1`, app.WalletID))
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return p, applied, nil
}

var profileSortColumns = map[string]string{
	"wins":     "wins DESC, xp DESC",
	"xp":       "xp DESC, wins DESC",
	"currency": "currency DESC, xp DESC",
}

func IsProfileSort(sort string) bool {
	_, ok := profileSortColumns[sort]
	return ok
}

func (s *Store) ListProfiles(ctx context.Context, sort string, limit, offset int) ([]Profile, error) {
	order, ok := profileSortColumns[sort]
	if !ok {
		order = profileSortColumns["wins"]
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY `+order+`, wallet_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
