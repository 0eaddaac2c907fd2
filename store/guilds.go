// Package store is the persistence layer for guild aggregates and player
// resources. Guild mutations go through an optimistic compare-and-swap on
// the record's version column; callers supply a mutation function that is
// retried on concurrent-write conflicts.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// casAttempts bounds the retry loop for a conflicted mutation.
const casAttempts = 5

// Guilds persists guild aggregates as versioned document rows.
type Guilds struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGuilds creates the guild store.
func NewGuilds(db *gorm.DB, logger *zap.Logger) *Guilds {
	return &Guilds{db: db, logger: logger}
}

// DB exposes the underlying handle for transaction composition.
func (s *Guilds) DB() *gorm.DB { return s.db }

func encodeRecord(g *guild.Guild, version int64) (*model.GuildRecord, error) {
	doc, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(err, "encode guild doc")
	}
	return &model.GuildRecord{
		ID:          g.ID,
		ServerID:    g.ServerID,
		Name:        g.Name,
		Tag:         g.Tag,
		Level:       g.Level,
		MemberCount: g.MemberCount,
		Visibility:  string(g.Settings.Visibility),
		MinLevel:    g.Settings.MinLevel,
		Status:      string(g.Status),
		Doc:         datatypes.JSON(doc),
		Version:     version,
	}, nil
}

func decodeRecord(rec *model.GuildRecord) (*guild.Guild, error) {
	var g guild.Guild
	if err := json.Unmarshal(rec.Doc, &g); err != nil {
		return nil, errors.Wrapf(err, "decode guild doc %s", rec.ID)
	}
	return &g, nil
}

// Create inserts a new guild row and runs extra in the same transaction
// (the founder's gold debit and guild back-reference). A name or tag
// collision surfaces as a precondition failure.
func (s *Guilds) Create(ctx context.Context, g *guild.Guild, extra func(tx *gorm.DB) error) error {
	rec, err := encodeRecord(g, 1)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if extra != nil {
			return extra(tx)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return guild.Failedf("guild name or tag already taken")
		}
		return errors.Wrap(err, "create guild")
	}
	return nil
}

// Load fetches the aggregate by id.
func (s *Guilds) Load(ctx context.Context, id string) (*guild.Guild, error) {
	var rec model.GuildRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, guild.NotFoundf("guild %s not found", id)
		}
		return nil, errors.Wrap(err, "load guild")
	}
	return decodeRecord(&rec)
}

// Mutate applies fn to the aggregate under optimistic concurrency
// control. Each attempt reloads fresh state, runs fn inside one database
// transaction (fn may write player rows through tx), and commits with a
// versioned update. A concurrent writer invalidates the version and the
// attempt is retried; exhausting the attempts returns a conflict error.
func (s *Guilds) Mutate(ctx context.Context, id string, fn func(tx *gorm.DB, g *guild.Guild) error) (*guild.Guild, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		g, committed, err := s.tryMutate(ctx, id, fn)
		if err != nil {
			return nil, err
		}
		if committed {
			return g, nil
		}
		s.logger.Debug("guild write conflict, retrying",
			zap.String("guild_id", id),
			zap.Int("attempt", attempt+1))
	}
	return nil, guild.Conflictf("guild %s is being modified concurrently", id)
}

func (s *Guilds) tryMutate(ctx context.Context, id string, fn func(tx *gorm.DB, g *guild.Guild) error) (*guild.Guild, bool, error) {
	var out *guild.Guild
	stale := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.GuildRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return guild.NotFoundf("guild %s not found", id)
			}
			return errors.Wrap(err, "load guild")
		}
		g, err := decodeRecord(&rec)
		if err != nil {
			return err
		}
		if err := fn(tx, g); err != nil {
			return err
		}
		next, err := encodeRecord(g, rec.Version+1)
		if err != nil {
			return err
		}
		res := tx.Model(&model.GuildRecord{}).
			Where("id = ? AND version = ?", id, rec.Version).
			Updates(map[string]interface{}{
				"server_id":    next.ServerID,
				"name":         next.Name,
				"tag":          next.Tag,
				"level":        next.Level,
				"member_count": next.MemberCount,
				"visibility":   next.Visibility,
				"min_level":    next.MinLevel,
				"status":       next.Status,
				"doc":          next.Doc,
				"version":      next.Version,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "store guild")
		}
		if res.RowsAffected == 0 {
			stale = true
			return errStaleVersion
		}
		out = g
		return nil
	})
	if stale {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// errStaleVersion aborts the transaction on a lost CAS race; it never
// escapes tryMutate.
var errStaleVersion = errors.New("store: stale guild version")

// ActiveIDs lists the ids of non-disbanded guilds on one server shard,
// for maintenance sweeps.
func (s *Guilds) ActiveIDs(ctx context.Context, serverID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.GuildRecord{}).
		Where("server_id = ? AND status <> ?", serverID, string(guild.StatusDisbanded)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list active guilds")
	}
	return ids, nil
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
