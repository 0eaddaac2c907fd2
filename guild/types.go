package guild

import "time"

// Status is the lifecycle state of a guild.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusDisbanded Status = "disbanded"
)

// Visibility controls whether a guild appears in public search results.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Settings holds leader-configurable guild policy.
type Settings struct {
	Visibility     Visibility `json:"visibility"`
	AutoAccept     bool       `json:"auto_accept"`
	MinLevel       int        `json:"min_level"`
	MinPower       int64      `json:"min_power"`
	InactivityDays int        `json:"inactivity_days"`
}

// Member is a player's membership record. PlayerID references the external
// player profile; name/level/power are denormalized snapshots refreshed on
// activity.
type Member struct {
	PlayerID           string    `json:"player_id"`
	PlayerName         string    `json:"player_name"`
	Level              int       `json:"level"`
	Power              int64     `json:"power"`
	Role               Role      `json:"role"`
	JoinedAt           time.Time `json:"joined_at"`
	LastActiveAt       time.Time `json:"last_active_at"`
	ContributionDaily  int64     `json:"contribution_daily"`
	ContributionWeekly int64     `json:"contribution_weekly"`
	ContributionTotal  int64     `json:"contribution_total"`
}

// ApplicationStatus is the state of a membership application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a player's request to join, with a snapshot of their
// level/power at apply time.
type Application struct {
	PlayerID   string            `json:"player_id"`
	PlayerName string            `json:"player_name"`
	Level      int               `json:"level"`
	Power      int64             `json:"power"`
	Message    string            `json:"message"`
	AppliedAt  time.Time         `json:"applied_at"`
	Status     ApplicationStatus `json:"status"`
}

// InvitationStatus is the state of an outbound invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation invites a player into the guild. Expired invitations are
// reaped lazily rather than deleted the moment they lapse.
type Invitation struct {
	PlayerID  string           `json:"player_id"`
	InvitedBy string           `json:"invited_by"`
	InvitedAt time.Time        `json:"invited_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	Status    InvitationStatus `json:"status"`
}

// Bank is the guild's shared treasury.
type Bank struct {
	Gold      int64            `json:"gold"`
	Materials map[string]int64 `json:"materials,omitempty"`
}

// LogEntry is one line in the guild activity log.
type LogEntry struct {
	At         time.Time `json:"at"`
	Type       string    `json:"type"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorName  string    `json:"actor_name,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	TargetName string    `json:"target_name,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// RewardWindows tracks per-player daily/weekly reward claims.
type RewardWindows struct {
	DailyClaims  map[string]time.Time `json:"daily_claims,omitempty"`
	WeeklyClaims map[string]time.Time `json:"weekly_claims,omitempty"`
}

// RewardBundle is one payout: currency, materials, and exclusive items.
type RewardBundle struct {
	Gold      int64            `json:"gold,omitempty"`
	Materials map[string]int64 `json:"materials,omitempty"`
	Items     []string         `json:"items,omitempty"`
}

// Stats is derived from the aggregate on demand, never stored
// authoritatively.
type Stats struct {
	MemberCount     int     `json:"member_count"`
	TotalPower      int64   `json:"total_power"`
	AverageLevel    float64 `json:"average_level"`
	QuestsActive    int     `json:"quests_active"`
	QuestsCompleted int     `json:"quests_completed"`
	RaidsRecorded   int     `json:"raids_recorded"`
}
