// Package types defines the shared data structures for the aplcore engine.
// It holds data only: no logic and no methods.
package types

import "time"

// SpellID identifies an ability in the identifier catalog.
type SpellID int32

// ValueKind is the runtime type of an evaluated expression.
type ValueKind string

const (
	KindBool     ValueKind = "bool"
	KindNumber   ValueKind = "number"
	KindDuration ValueKind = "duration"
)

// Value is the result of evaluating a condition node.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Dur  time.Duration
}

// ConditionType tags a Condition node.
type ConditionType string

const (
	CondConst  ConditionType = "const"
	CondCmp    ConditionType = "cmp"
	CondMath   ConditionType = "math"
	CondAnd    ConditionType = "and"
	CondOr     ConditionType = "or"
	CondNot    ConditionType = "not"
	CondMetric ConditionType = "metric"
)

// CompareOp is a comparison operator used by cmp nodes.
type CompareOp string

const (
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
)

// MathOp is an arithmetic operator used by math nodes.
type MathOp string

const (
	OpAdd MathOp = "+"
	OpSub MathOp = "-"
	OpMul MathOp = "*"
	OpDiv MathOp = "/"
)

// MetricKind names a state query.
type MetricKind string

const (
	MetricSpellCpm         MetricKind = "spellCpm"
	MetricCurrentTime      MetricKind = "currentTime"
	MetricRemainingTime    MetricKind = "remainingTime"
	MetricNumTargets       MetricKind = "numTargets"
	MetricSpellIsReady     MetricKind = "spellIsReady"
	MetricSpellTimeToReady MetricKind = "spellTimeToReady"
	MetricDotRemaining     MetricKind = "dotRemaining"
	MetricShieldsActive    MetricKind = "shieldsActive"
	MetricManaPercent      MetricKind = "manaPercent"
)

// Condition is a tagged expression node. Which fields are meaningful
// depends on Type:
//
//	const:  Value
//	cmp:    Cmp, LHS, RHS
//	math:   Math, LHS, RHS
//	and/or: Children
//	not:    Children[0]
//	metric: Metric, SpellID
type Condition struct {
	Type     ConditionType
	Value    Value
	Cmp      CompareOp
	Math     MathOp
	LHS      *Condition
	RHS      *Condition
	Children []Condition
	Metric   MetricKind
	SpellID  SpellID
}

// ActionType tags an Action.
type ActionType string

const (
	ActionCastSpell         ActionType = "castSpell"
	ActionMultiDot          ActionType = "multidot"
	ActionMultiShield       ActionType = "multishield"
	ActionAutocastCooldowns ActionType = "autocastCooldowns"
	ActionWait              ActionType = "wait"
	ActionSequence          ActionType = "sequence"
	ActionResetSequence     ActionType = "resetSequence"
)

// Action carries only static parameters; it owns no simulation state.
type Action struct {
	Type         ActionType
	SpellID      SpellID
	MaxInstances int
	MaxOverlap   time.Duration
	Duration     time.Duration // wait
	Name         string        // sequence, resetSequence
	Actions      []Action      // sequence
}

// PriorityEntry is one (condition, action) row. A nil Condition is
// unconditionally true.
type PriorityEntry struct {
	Condition *Condition
	Action    Action
}

// PriorityList is an ordered rotation. Order defines priority.
type PriorityList struct {
	Name    string
	Entries []PriorityEntry
}

// SpellKind selects how the combat collaborator lands a spell.
type SpellKind string

const (
	SpellDamage SpellKind = "damage"
	SpellHeal   SpellKind = "heal"
	SpellDot    SpellKind = "dot"
	SpellShield SpellKind = "shield"
	SpellBuff   SpellKind = "buff"
)

// Spell is one identifier-catalog entry.
type Spell struct {
	ID               SpellID
	Name             string
	Kind             SpellKind
	CastTime         time.Duration
	Cooldown         time.Duration
	Cost             float64
	OnGCD            bool
	MajorCooldown    bool
	CooldownPriority int
	Duration         time.Duration // dot/shield/buff lifetime
	TickInterval     time.Duration // dot tick period
	BaseAmount       float64
}

// Instance is one active dot or shield on a target.
type Instance struct {
	Expires    time.Duration
	Generation int
	Absorb     float64
}

// Totals accumulates output over a run.
type Totals struct {
	Damage  float64
	Healing float64
	Absorb  float64
	Casts   int
}

// State is the mutable per-actor simulation state.
type State struct {
	Now          time.Duration
	Horizon      time.Duration
	Targets      int
	Allies       int
	Casts        map[SpellID][]time.Duration
	Instances    map[SpellID]map[int]Instance
	ReadyAt      map[SpellID]time.Duration
	GCDReadyAt   time.Duration
	CastingUntil time.Duration
	Casting      SpellID
	WaitUntil    time.Duration
	Mana         float64
	MaxMana      float64
	Sequences    map[string]int
	Totals       Totals
	Decisions    int
	RNGSeed      int64
	RNGPosition  int64
}

// EventType tags a timeline event.
type EventType string

const (
	EventCastStart    EventType = "cast_start"
	EventCastComplete EventType = "cast_complete"
	EventDamage       EventType = "damage"
	EventHeal         EventType = "heal"
	EventDotApplied   EventType = "dot_applied"
	EventDotTick      EventType = "dot_tick"
	EventShield       EventType = "shield_applied"
	EventExpire       EventType = "expired"
	EventCooldownUp   EventType = "cooldown_ready"
	EventManaTick     EventType = "mana_tick"
	EventWait         EventType = "wait"
	EventSequence     EventType = "sequence_reset"
)

// Event is one timeline record: (timestamp, action, target, effect).
type Event struct {
	At      time.Duration `json:"at"`
	Type    EventType     `json:"type"`
	SpellID SpellID       `json:"spell_id,omitempty"`
	Target  int           `json:"target"`
	Amount  float64       `json:"amount,omitempty"`
	Crit    bool          `json:"crit,omitempty"`
	Entry   int           `json:"entry"`
}

// Result is the output of a single simulation run.
type Result struct {
	Rotation  string
	Seed      int64
	Horizon   time.Duration
	End       time.Duration
	Events    []Event
	Totals    Totals
	Decisions int
	Stopped   bool
}
