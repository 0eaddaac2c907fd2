// Package guild holds the guild aggregate: the single consistency boundary
// for members, applications, invitations, quests, raids, and the bank.
// Every mutating method validates its preconditions against current state
// before touching anything, so a failed call leaves the aggregate unchanged.
package guild

import "time"

const (
	activityLogCap  = 100
	raidHistoryCap  = 20
	maxMembersCap   = 50
	maxMembersStep  = 5
	memberUnlockMod = 10 // +maxMembersStep every Nth level
)

// Guild is the aggregate root. One document per guild; all mutation goes
// through its methods.
type Guild struct {
	ID                 string         `json:"id"`
	ServerID           string         `json:"server_id"`
	Name               string         `json:"name"`
	Tag                string         `json:"tag"`
	Level              int            `json:"level"`
	Experience         int64          `json:"experience"`
	ExperienceRequired int64          `json:"experience_required"`
	Settings           Settings       `json:"settings"`
	Members            []Member       `json:"members"`
	MemberCount        int            `json:"member_count"`
	MaxMembers         int            `json:"max_members"`
	Applications       []Application  `json:"applications,omitempty"`
	Invitations        []Invitation   `json:"invitations,omitempty"`
	ActivityLog        Ring[LogEntry] `json:"activity_log"`
	Quests             []Quest        `json:"quests,omitempty"`
	Raid               *Raid          `json:"raid,omitempty"`
	RaidHistory        Ring[Raid]     `json:"raid_history"`
	Bank               Bank           `json:"bank"`
	Rewards            RewardWindows  `json:"rewards"`
	Status             Status         `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
}

// New creates a guild with the founder as its sole member and leader.
func New(id, serverID, name, tag string, founder Member, maxMembers int, now time.Time) *Guild {
	founder.Role = RoleLeader
	founder.JoinedAt = now
	founder.LastActiveAt = now
	g := &Guild{
		ID:          id,
		ServerID:    serverID,
		Name:        name,
		Tag:         tag,
		Level:       1,
		Settings:    Settings{Visibility: VisibilityPublic},
		Members:     []Member{founder},
		MaxMembers:  maxMembers,
		ActivityLog: NewRing[LogEntry](activityLogCap),
		RaidHistory: NewRing[Raid](raidHistoryCap),
		Status:      StatusActive,
		CreatedAt:   now,
	}
	g.recompute()
	g.log(LogEntry{At: now, Type: "guild_created", ActorID: founder.PlayerID, ActorName: founder.PlayerName})
	return g
}

func expRequired(level int) int64 {
	return int64(level)*1000 + int64(level-1)*500
}

// recompute refreshes the derived fields after every mutation.
func (g *Guild) recompute() {
	g.MemberCount = len(g.Members)
	g.ExperienceRequired = expRequired(g.Level)
}

func (g *Guild) log(e LogEntry) {
	if g.ActivityLog.Capacity == 0 {
		g.ActivityLog = NewRing[LogEntry](activityLogCap)
	}
	g.ActivityLog.Push(e)
}

// Member returns the membership record for playerID, or nil.
func (g *Guild) Member(playerID string) *Member {
	for i := range g.Members {
		if g.Members[i].PlayerID == playerID {
			return &g.Members[i]
		}
	}
	return nil
}

// Leader returns the guild leader, or nil for an empty guild.
func (g *Guild) Leader() *Member {
	for i := range g.Members {
		if g.Members[i].Role == RoleLeader {
			return &g.Members[i]
		}
	}
	return nil
}

// IsFull reports whether the member roster is at capacity.
func (g *Guild) IsFull() bool {
	return len(g.Members) >= g.MaxMembers
}

func (g *Guild) ensureMutable() error {
	if g.Status == StatusDisbanded {
		return Failedf("guild %s is disbanded", g.ID)
	}
	return nil
}

// touch records activity for playerID and revives an inactive guild.
func (g *Guild) touch(playerID string, now time.Time) {
	if m := g.Member(playerID); m != nil {
		m.LastActiveAt = now
		if g.Status == StatusInactive {
			g.Status = StatusActive
		}
	}
}

// AddMember admits m into the roster. The first member of an empty guild
// becomes leader regardless of the role passed in.
func (g *Guild) AddMember(m Member, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	if g.Member(m.PlayerID) != nil {
		return Failedf("player %s is already a member", m.PlayerID)
	}
	if g.IsFull() {
		return Failedf("guild full (%d/%d)", len(g.Members), g.MaxMembers)
	}
	if len(g.Members) == 0 {
		m.Role = RoleLeader
	} else if m.Role == "" || m.Role == RoleLeader {
		m.Role = RoleMember
	}
	m.JoinedAt = now
	m.LastActiveAt = now
	g.Members = append(g.Members, m)
	g.recompute()
	g.log(LogEntry{At: now, Type: "member_joined", ActorID: m.PlayerID, ActorName: m.PlayerName})
	return nil
}

// RemoveMember takes playerID off the roster. Removing the leader is only
// allowed when they are the sole member, in which case the guild disbands.
func (g *Guild) RemoveMember(playerID, reason string, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	m := g.Member(playerID)
	if m == nil {
		return NotFoundf("player %s is not a member", playerID)
	}
	if m.Role == RoleLeader && len(g.Members) > 1 {
		return Failedf("leader must transfer leadership or disband first")
	}
	name := m.PlayerName
	for i := range g.Members {
		if g.Members[i].PlayerID == playerID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	g.recompute()
	g.log(LogEntry{At: now, Type: "member_left", ActorID: playerID, ActorName: name, Message: reason})
	if len(g.Members) == 0 {
		g.Status = StatusDisbanded
		g.log(LogEntry{At: now, Type: "guild_disbanded", Message: "last member left"})
	}
	return nil
}

// Kick removes target on behalf of actor, enforcing the role hierarchy.
func (g *Guild) Kick(actorID, targetID string, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	target := g.Member(targetID)
	if target == nil {
		return NotFoundf("player %s is not a member", targetID)
	}
	if actorID == targetID {
		return Failedf("cannot kick yourself")
	}
	if !CanKick(actor.Role, target.Role) {
		return Deniedf("%s cannot kick %s", actor.Role, target.Role)
	}
	g.touch(actorID, now)
	name := target.PlayerName
	for i := range g.Members {
		if g.Members[i].PlayerID == targetID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	g.recompute()
	g.log(LogEntry{At: now, Type: "member_kicked", ActorID: actorID, ActorName: actor.PlayerName,
		TargetID: targetID, TargetName: name})
	return nil
}

// SetRole changes target's role on behalf of actor. Promoting to leader is
// a leadership transfer: the outgoing leader is demoted to officer in the
// same step, so the guild never has two leaders, even transiently.
func (g *Guild) SetRole(actorID, targetID string, newRole Role, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	if !ValidRole(newRole) {
		return Failedf("unknown role %q", newRole)
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	target := g.Member(targetID)
	if target == nil {
		return NotFoundf("player %s is not a member", targetID)
	}
	if actorID == targetID {
		return Failedf("cannot change your own role")
	}
	if target.Role == RoleLeader {
		return Failedf("the leader's role can only change through a leadership transfer")
	}
	if target.Role == newRole {
		return Failedf("player %s already has role %s", targetID, newRole)
	}
	if !CanAssignRole(actor.Role, newRole) {
		return Deniedf("%s cannot assign role %s", actor.Role, newRole)
	}
	// Officers may only manage members below officer rank.
	if actor.Role != RoleLeader && Rank(target.Role) >= Rank(actor.Role) {
		return Deniedf("%s cannot manage %s", actor.Role, target.Role)
	}
	g.touch(actorID, now)
	if newRole == RoleLeader {
		g.transferLeadership(targetID, RoleOfficer, now)
		return nil
	}
	old := target.Role
	target.Role = newRole
	g.recompute()
	g.log(LogEntry{At: now, Type: "member_role_changed", ActorID: actorID, ActorName: actor.PlayerName,
		TargetID: targetID, TargetName: target.PlayerName,
		Message: string(old) + " -> " + string(newRole)})
	return nil
}

// transferLeadership atomically demotes the current leader to demoteTo and
// promotes newLeaderID. Callers have already validated membership.
func (g *Guild) transferLeadership(newLeaderID string, demoteTo Role, now time.Time) {
	old := g.Leader()
	next := g.Member(newLeaderID)
	if next == nil || old == nil || old.PlayerID == newLeaderID {
		return
	}
	old.Role = demoteTo
	next.Role = RoleLeader
	g.recompute()
	g.log(LogEntry{At: now, Type: "leadership_transferred",
		ActorID: old.PlayerID, ActorName: old.PlayerName,
		TargetID: next.PlayerID, TargetName: next.PlayerName})
}

// TransferInactiveLeadership hands leadership to the highest-ranked member
// who is still active when the current leader has been idle past threshold.
// Ties break toward the larger total contribution, then the earlier join.
// The old leader is demoted to a regular member. Returns the ids involved
// and whether a transfer happened.
func (g *Guild) TransferInactiveLeadership(threshold time.Duration, now time.Time) (oldID, newID string, transferred bool) {
	if g.Status == StatusDisbanded || len(g.Members) < 2 {
		return "", "", false
	}
	leader := g.Leader()
	if leader == nil || now.Sub(leader.LastActiveAt) <= threshold {
		return "", "", false
	}
	var best *Member
	for i := range g.Members {
		m := &g.Members[i]
		if m.Role == RoleLeader {
			continue
		}
		if now.Sub(m.LastActiveAt) > threshold {
			continue // candidate must themselves be active
		}
		if best == nil || betterLeaderCandidate(m, best) {
			best = m
		}
	}
	if best == nil {
		return "", "", false
	}
	oldID = leader.PlayerID
	newID = best.PlayerID
	g.transferLeadership(newID, RoleMember, now)
	return oldID, newID, true
}

func betterLeaderCandidate(a, b *Member) bool {
	if Rank(a.Role) != Rank(b.Role) {
		return Rank(a.Role) > Rank(b.Role)
	}
	if a.ContributionTotal != b.ContributionTotal {
		return a.ContributionTotal > b.ContributionTotal
	}
	return a.JoinedAt.Before(b.JoinedAt)
}

// Disband marks the guild terminally disbanded.
func (g *Guild) Disband(actorID string, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if actor.Role != RoleLeader {
		return Deniedf("only the leader can disband the guild")
	}
	g.Status = StatusDisbanded
	g.recompute()
	g.log(LogEntry{At: now, Type: "guild_disbanded", ActorID: actorID, ActorName: actor.PlayerName})
	return nil
}

// UpdateSettings replaces the guild policy. Leader only.
func (g *Guild) UpdateSettings(actorID string, s Settings, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if actor.Role != RoleLeader {
		return Deniedf("only the leader can change guild settings")
	}
	if s.Visibility == "" {
		s.Visibility = VisibilityPublic
	}
	g.touch(actorID, now)
	g.Settings = s
	g.log(LogEntry{At: now, Type: "settings_updated", ActorID: actorID, ActorName: actor.PlayerName})
	return nil
}

// AddApplication records a pending join request after checking the guild's
// entry requirements. At most one pending application per player.
func (g *Guild) AddApplication(app Application, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	if g.Member(app.PlayerID) != nil {
		return Failedf("player %s is already a member", app.PlayerID)
	}
	if g.IsFull() {
		return Failedf("guild full (%d/%d)", len(g.Members), g.MaxMembers)
	}
	if app.Level < g.Settings.MinLevel {
		return Failedf("level %d below guild minimum %d", app.Level, g.Settings.MinLevel)
	}
	if app.Power < g.Settings.MinPower {
		return Failedf("power %d below guild minimum %d", app.Power, g.Settings.MinPower)
	}
	for i := range g.Applications {
		if g.Applications[i].PlayerID == app.PlayerID && g.Applications[i].Status == ApplicationPending {
			return Failedf("player %s already has a pending application", app.PlayerID)
		}
	}
	app.AppliedAt = now
	app.Status = ApplicationPending
	g.Applications = append(g.Applications, app)
	return nil
}

// ProcessApplication accepts or rejects applicantID's pending application
// on behalf of actor. Accepting admits them as a regular member.
func (g *Guild) ProcessApplication(actorID, applicantID string, accept bool, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if !CanManageMembers(actor.Role) {
		return Deniedf("%s cannot process applications", actor.Role)
	}
	idx := -1
	for i := range g.Applications {
		if g.Applications[i].PlayerID == applicantID && g.Applications[i].Status == ApplicationPending {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NotFoundf("no pending application from player %s", applicantID)
	}
	app := g.Applications[idx]
	if accept {
		if err := g.AddMember(Member{
			PlayerID:   app.PlayerID,
			PlayerName: app.PlayerName,
			Level:      app.Level,
			Power:      app.Power,
			Role:       RoleMember,
		}, now); err != nil {
			return err
		}
	}
	g.touch(actorID, now)
	g.Applications = append(g.Applications[:idx], g.Applications[idx+1:]...)
	return nil
}

// AddInvitation invites targetID on behalf of actor. At most one pending
// invitation per player; expired ones are reaped first.
func (g *Guild) AddInvitation(actorID, targetID string, ttl time.Duration, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	actor := g.Member(actorID)
	if actor == nil {
		return Deniedf("player %s is not a member", actorID)
	}
	if !CanInvite(actor.Role) {
		return Deniedf("%s cannot send invitations", actor.Role)
	}
	if g.Member(targetID) != nil {
		return Failedf("player %s is already a member", targetID)
	}
	if g.IsFull() {
		return Failedf("guild full (%d/%d)", len(g.Members), g.MaxMembers)
	}
	g.ReapExpiredInvitations(now)
	for i := range g.Invitations {
		if g.Invitations[i].PlayerID == targetID && g.Invitations[i].Status == InvitationPending {
			return Failedf("player %s already has a pending invitation", targetID)
		}
	}
	g.touch(actorID, now)
	g.Invitations = append(g.Invitations, Invitation{
		PlayerID:  targetID,
		InvitedBy: actorID,
		InvitedAt: now,
		ExpiresAt: now.Add(ttl),
		Status:    InvitationPending,
	})
	return nil
}

// ProcessInvitation resolves playerID's pending invitation. Accepting
// admits them with the given roster snapshot.
func (g *Guild) ProcessInvitation(playerID string, accept bool, joining Member, now time.Time) error {
	if err := g.ensureMutable(); err != nil {
		return err
	}
	idx := -1
	for i := range g.Invitations {
		if g.Invitations[i].PlayerID == playerID && g.Invitations[i].Status == InvitationPending {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NotFoundf("no pending invitation for player %s", playerID)
	}
	if now.After(g.Invitations[idx].ExpiresAt) {
		g.Invitations = append(g.Invitations[:idx], g.Invitations[idx+1:]...)
		return Failedf("invitation expired")
	}
	if accept {
		joining.Role = RoleMember
		if err := g.AddMember(joining, now); err != nil {
			return err
		}
	}
	g.Invitations = append(g.Invitations[:idx], g.Invitations[idx+1:]...)
	return nil
}

// ReapExpiredInvitations flips lapsed invitations to expired and drops
// them from the active list. Returns how many were reaped.
func (g *Guild) ReapExpiredInvitations(now time.Time) int {
	kept := g.Invitations[:0]
	reaped := 0
	for _, inv := range g.Invitations {
		if inv.Status == InvitationPending && now.After(inv.ExpiresAt) {
			inv.Status = InvitationExpired
			reaped++
			continue
		}
		kept = append(kept, inv)
	}
	g.Invitations = kept
	return reaped
}

// PendingInvitations returns invitations still pending at now.
func (g *Guild) PendingInvitations(now time.Time) []Invitation {
	var out []Invitation
	for _, inv := range g.Invitations {
		if inv.Status == InvitationPending && !now.After(inv.ExpiresAt) {
			out = append(out, inv)
		}
	}
	return out
}

// AddExperience credits exp and applies any level-ups, returning the
// levels reached (one notification per level, not per call). Every 10th
// level unlocks 5 more roster slots, capped at 50.
func (g *Guild) AddExperience(amount int64, source string, now time.Time) []int {
	if amount <= 0 || g.Status == StatusDisbanded {
		return nil
	}
	g.Experience += amount
	var gained []int
	for g.Experience >= g.ExperienceRequired {
		g.Experience -= g.ExperienceRequired
		g.Level++
		g.ExperienceRequired = expRequired(g.Level)
		if g.Level%memberUnlockMod == 0 && g.MaxMembers < maxMembersCap {
			g.MaxMembers += maxMembersStep
			if g.MaxMembers > maxMembersCap {
				g.MaxMembers = maxMembersCap
			}
		}
		gained = append(gained, g.Level)
		g.log(LogEntry{At: now, Type: "guild_level_up", Message: source})
	}
	g.recompute()
	return gained
}

// addContribution bumps a member's contribution counters.
func (g *Guild) addContribution(playerID string, amount int64) {
	if m := g.Member(playerID); m != nil {
		m.ContributionDaily += amount
		m.ContributionWeekly += amount
		m.ContributionTotal += amount
	}
}

// ResetDailyContributions zeroes every member's daily counter.
func (g *Guild) ResetDailyContributions() {
	for i := range g.Members {
		g.Members[i].ContributionDaily = 0
	}
}

// ResetWeeklyContributions zeroes every member's weekly counter.
func (g *Guild) ResetWeeklyContributions() {
	for i := range g.Members {
		g.Members[i].ContributionWeekly = 0
	}
}

// InactivityThreshold returns the guild's configured inactivity window,
// falling back to defaultDays when the setting is unset.
func (g *Guild) InactivityThreshold(defaultDays int) time.Duration {
	days := g.Settings.InactivityDays
	if days <= 0 {
		days = defaultDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// MarkDormant flips an active guild whose entire roster is idle past
// threshold to inactive. The next member action revives it through touch.
func (g *Guild) MarkDormant(threshold time.Duration, now time.Time) bool {
	if g.Status != StatusActive || len(g.Members) == 0 {
		return false
	}
	for i := range g.Members {
		if now.Sub(g.Members[i].LastActiveAt) <= threshold {
			return false
		}
	}
	g.Status = StatusInactive
	g.log(LogEntry{At: now, Type: "guild_dormant"})
	return true
}

// InactiveMembers returns non-leader members idle past threshold.
func (g *Guild) InactiveMembers(threshold time.Duration, now time.Time) []Member {
	var out []Member
	for _, m := range g.Members {
		if m.Role == RoleLeader {
			continue
		}
		if now.Sub(m.LastActiveAt) > threshold {
			out = append(out, m)
		}
	}
	return out
}

// ComputeStats derives roster statistics from current state.
func (g *Guild) ComputeStats() Stats {
	s := Stats{MemberCount: len(g.Members), RaidsRecorded: g.RaidHistory.Len()}
	for _, m := range g.Members {
		s.TotalPower += m.Power
	}
	if len(g.Members) > 0 {
		total := 0
		for _, m := range g.Members {
			total += m.Level
		}
		s.AverageLevel = float64(total) / float64(len(g.Members))
	}
	for _, q := range g.Quests {
		if q.IsCompleted {
			s.QuestsCompleted++
		} else {
			s.QuestsActive++
		}
	}
	return s
}
