package store

import (
	"context"
	"encoding/json"

	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/model"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Players reads and writes player rows. The *Tx methods take a gorm
// transaction handle so player-side effects commit atomically with the
// owning guild's document write.
type Players struct {
	db *gorm.DB
}

// NewPlayers creates the player store.
func NewPlayers(db *gorm.DB) *Players {
	return &Players{db: db}
}

// Get fetches a player by id.
func (s *Players) Get(ctx context.Context, id string) (*model.Player, error) {
	var p model.Player
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, guild.NotFoundf("player %s not found", id)
		}
		return nil, errors.Wrap(err, "load player")
	}
	return &p, nil
}

// GetByName fetches a player by unique name.
func (s *Players) GetByName(ctx context.Context, name string) (*model.Player, error) {
	var p model.Player
	if err := s.db.WithContext(ctx).First(&p, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, guild.NotFoundf("player %s not found", name)
		}
		return nil, errors.Wrap(err, "load player")
	}
	return &p, nil
}

// Create inserts a new player row.
func (s *Players) Create(ctx context.Context, p *model.Player) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return guild.Failedf("player name already taken")
		}
		return errors.Wrap(err, "create player")
	}
	return nil
}

// SetGuildTx stamps the player's guild back-reference. The guard on a
// NULL guild_id makes joining two guilds at once impossible regardless of
// which aggregates the racing writers hold.
func (s *Players) SetGuildTx(tx *gorm.DB, playerID, guildID string) error {
	res := tx.Model(&model.Player{}).
		Where("id = ? AND guild_id IS NULL", playerID).
		Update("guild_id", guildID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "set player guild")
	}
	if res.RowsAffected == 0 {
		return guild.Failedf("player %s is already in a guild", playerID)
	}
	return nil
}

// ClearGuildTx clears the back-reference, but only if it still points at
// guildID.
func (s *Players) ClearGuildTx(tx *gorm.DB, playerID, guildID string) error {
	err := tx.Model(&model.Player{}).
		Where("id = ? AND guild_id = ?", playerID, guildID).
		Update("guild_id", nil).Error
	return errors.Wrap(err, "clear player guild")
}

// ClearGuildAllTx clears the back-reference for every member of guildID,
// used on disband.
func (s *Players) ClearGuildAllTx(tx *gorm.DB, guildID string) error {
	err := tx.Model(&model.Player{}).
		Where("guild_id = ?", guildID).
		Update("guild_id", nil).Error
	return errors.Wrap(err, "clear guild members")
}

// DebitGoldTx subtracts gold, failing when the balance is insufficient.
func (s *Players) DebitGoldTx(tx *gorm.DB, playerID string, amount int64) error {
	res := tx.Model(&model.Player{}).
		Where("id = ? AND gold >= ?", playerID, amount).
		Update("gold", gorm.Expr("gold - ?", amount))
	if res.Error != nil {
		return errors.Wrap(res.Error, "debit gold")
	}
	if res.RowsAffected == 0 {
		return guild.Failedf("player %s does not have %d gold", playerID, amount)
	}
	return nil
}

// CreditGoldTx adds gold to the player's balance.
func (s *Players) CreditGoldTx(tx *gorm.DB, playerID string, amount int64) error {
	err := tx.Model(&model.Player{}).
		Where("id = ?", playerID).
		Update("gold", gorm.Expr("gold + ?", amount)).Error
	return errors.Wrap(err, "credit gold")
}

// DebitMaterialsTx removes materials from the player's pouch, failing if
// any quantity is short.
func (s *Players) DebitMaterialsTx(tx *gorm.DB, playerID string, materials map[string]int64) error {
	var p model.Player
	if err := tx.First(&p, "id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return guild.NotFoundf("player %s not found", playerID)
		}
		return errors.Wrap(err, "load player")
	}
	pouch := decodeMaterials(p.Materials)
	for id, qty := range materials {
		if pouch[id] < qty {
			return guild.Failedf("player %s does not have %d of %s", playerID, qty, id)
		}
		pouch[id] -= qty
		if pouch[id] == 0 {
			delete(pouch, id)
		}
	}
	return saveMaterials(tx, playerID, pouch)
}

// CreditMaterialsTx adds materials to the player's pouch.
func (s *Players) CreditMaterialsTx(tx *gorm.DB, playerID string, materials map[string]int64) error {
	var p model.Player
	if err := tx.First(&p, "id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return guild.NotFoundf("player %s not found", playerID)
		}
		return errors.Wrap(err, "load player")
	}
	pouch := decodeMaterials(p.Materials)
	for id, qty := range materials {
		pouch[id] += qty
	}
	return saveMaterials(tx, playerID, pouch)
}

// GrantRewardTx pays a reward bundle: gold, materials, and items, all in
// the caller's transaction.
func (s *Players) GrantRewardTx(tx *gorm.DB, playerID string, r guild.RewardBundle) error {
	if r.Gold > 0 {
		if err := s.CreditGoldTx(tx, playerID, r.Gold); err != nil {
			return err
		}
	}
	if len(r.Materials) > 0 {
		if err := s.CreditMaterialsTx(tx, playerID, r.Materials); err != nil {
			return err
		}
	}
	if len(r.Items) > 0 {
		if err := s.grantItemsTx(tx, playerID, r.Items); err != nil {
			return err
		}
	}
	return nil
}

func (s *Players) grantItemsTx(tx *gorm.DB, playerID string, items []string) error {
	var p model.Player
	if err := tx.First(&p, "id = ?", playerID).Error; err != nil {
		return errors.Wrap(err, "load player")
	}
	var owned []string
	if len(p.Items) > 0 {
		_ = json.Unmarshal(p.Items, &owned)
	}
	owned = append(owned, items...)
	data, err := json.Marshal(owned)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	return errors.Wrap(tx.Model(&model.Player{}).
		Where("id = ?", playerID).
		Update("items", datatypes.JSON(data)).Error, "grant items")
}

func decodeMaterials(raw datatypes.JSON) map[string]int64 {
	pouch := map[string]int64{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &pouch)
	}
	return pouch
}

func saveMaterials(tx *gorm.DB, playerID string, pouch map[string]int64) error {
	data, err := json.Marshal(pouch)
	if err != nil {
		return errors.Wrap(err, "encode materials")
	}
	return errors.Wrap(tx.Model(&model.Player{}).
		Where("id = ?", playerID).
		Update("materials", datatypes.JSON(data)).Error, "save materials")
}
