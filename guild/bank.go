package guild

import "time"

// Reward scaling for the daily/weekly claim windows.
const (
	dailyRewardGoldPerLevel  = 100
	weeklyRewardGoldPerLevel = 600
)

// DepositGold credits the bank and the depositor's contribution counters.
// The matching player debit happens in the same transaction at the service
// layer.
func (g *Guild) DepositGold(playerID string, amount int64, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	m := g.Member(playerID)
	if m == nil {
		return Deniedf("player %s is not a member", playerID)
	}
	if amount <= 0 {
		return Failedf("deposit amount must be positive")
	}
	g.touch(playerID, now)
	g.Bank.Gold += amount
	g.addContribution(playerID, amount)
	g.log(LogEntry{At: now, Type: "bank_deposit", ActorID: playerID, ActorName: m.PlayerName})
	return nil
}

// DepositMaterials credits materials to the bank.
func (g *Guild) DepositMaterials(playerID string, materials map[string]int64, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	m := g.Member(playerID)
	if m == nil {
		return Deniedf("player %s is not a member", playerID)
	}
	total := int64(0)
	for _, qty := range materials {
		if qty <= 0 {
			return Failedf("material quantities must be positive")
		}
		total += qty
	}
	if total == 0 {
		return Failedf("nothing to deposit")
	}
	g.touch(playerID, now)
	if g.Bank.Materials == nil {
		g.Bank.Materials = make(map[string]int64, len(materials))
	}
	for id, qty := range materials {
		g.Bank.Materials[id] += qty
	}
	g.addContribution(playerID, total)
	g.log(LogEntry{At: now, Type: "bank_deposit", ActorID: playerID, ActorName: m.PlayerName})
	return nil
}

// CreditBank adds system-granted gold (quest payouts) to the treasury.
func (g *Guild) CreditBank(gold int64) {
	if gold > 0 {
		g.Bank.Gold += gold
	}
}

// ClaimDailyReward pays out the member's daily stipend, once per UTC day.
func (g *Guild) ClaimDailyReward(playerID string, now time.Time) (RewardBundle, error) {
	if err := g.ensureMutable(); err != nil {
		return RewardBundle{}, err
	}
	m := g.Member(playerID)
	if m == nil {
		return RewardBundle{}, Deniedf("player %s is not a member", playerID)
	}
	if last, ok := g.Rewards.DailyClaims[playerID]; ok && sameDay(last, now) {
		return RewardBundle{}, Failedf("daily reward already claimed")
	}
	if g.Rewards.DailyClaims == nil {
		g.Rewards.DailyClaims = make(map[string]time.Time)
	}
	g.touch(playerID, now)
	g.Rewards.DailyClaims[playerID] = now
	return RewardBundle{Gold: int64(g.Level) * dailyRewardGoldPerLevel}, nil
}

// ClaimWeeklyReward pays out the member's weekly stipend, once per ISO week.
func (g *Guild) ClaimWeeklyReward(playerID string, now time.Time) (RewardBundle, error) {
	if err := g.ensureMutable(); err != nil {
		return RewardBundle{}, err
	}
	m := g.Member(playerID)
	if m == nil {
		return RewardBundle{}, Deniedf("player %s is not a member", playerID)
	}
	if last, ok := g.Rewards.WeeklyClaims[playerID]; ok && sameWeek(last, now) {
		return RewardBundle{}, Failedf("weekly reward already claimed")
	}
	if g.Rewards.WeeklyClaims == nil {
		g.Rewards.WeeklyClaims = make(map[string]time.Time)
	}
	g.touch(playerID, now)
	g.Rewards.WeeklyClaims[playerID] = now
	return RewardBundle{Gold: int64(g.Level) * weeklyRewardGoldPerLevel}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func sameWeek(a, b time.Time) bool {
	ay, aw := a.UTC().ISOWeek()
	by, bw := b.UTC().ISOWeek()
	return ay == by && aw == bw
}
