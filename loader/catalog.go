package loader

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// rawCatalog is the YAML identifier catalog.
type rawCatalog struct {
	Actor         rawActor        `yaml:"actor"`
	Spells        []rawSpell      `yaml:"spells"`
	CooldownOrder []types.SpellID `yaml:"cooldown_order"`
}

type rawActor struct {
	GCD            *time.Duration `yaml:"gcd"`
	MaxMana        float64        `yaml:"max_mana"`
	ManaRegen      float64        `yaml:"mana_regen"`
	RegenInterval  time.Duration  `yaml:"regen_interval"`
	CritChance     float64        `yaml:"crit_chance"`
	CritMultiplier float64        `yaml:"crit_multiplier"`
	Variance       float64        `yaml:"variance"`
	RateWindow     time.Duration  `yaml:"rate_window"`
}

type rawSpell struct {
	ID               types.SpellID `yaml:"id"`
	Name             string        `yaml:"name"`
	Kind             string        `yaml:"kind"`
	CastTime         time.Duration `yaml:"cast_time"`
	Cooldown         time.Duration `yaml:"cooldown"`
	Cost             float64       `yaml:"cost"`
	OnGCD            *bool         `yaml:"on_gcd"`
	MajorCooldown    bool          `yaml:"major_cooldown"`
	CooldownPriority int           `yaml:"cooldown_priority"`
	Duration         time.Duration `yaml:"duration"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	BaseAmount       float64       `yaml:"base_amount"`
}

// LoadCatalog reads a YAML identifier catalog and returns the immutable
// Defs shared by every run.
func LoadCatalog(path string) (*state.Defs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	defs, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return defs, nil
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*state.Defs, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	defs := compileCatalog(raw)
	if err := validateCatalog(raw, defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func compileCatalog(raw rawCatalog) *state.Defs {
	spells := make([]types.Spell, 0, len(raw.Spells))
	for _, rs := range raw.Spells {
		kind := types.SpellKind(rs.Kind)
		if kind == "" {
			kind = types.SpellDamage
		}
		onGCD := true
		if rs.OnGCD != nil {
			onGCD = *rs.OnGCD
		}
		spells = append(spells, types.Spell{
			ID:               rs.ID,
			Name:             rs.Name,
			Kind:             kind,
			CastTime:         rs.CastTime,
			Cooldown:         rs.Cooldown,
			Cost:             rs.Cost,
			OnGCD:            onGCD,
			MajorCooldown:    rs.MajorCooldown,
			CooldownPriority: rs.CooldownPriority,
			Duration:         rs.Duration,
			TickInterval:     rs.TickInterval,
			BaseAmount:       rs.BaseAmount,
		})
	}

	defs := state.NewDefs(spells)
	a := raw.Actor
	if a.GCD != nil {
		defs.GCD = *a.GCD
	}
	defs.MaxMana = a.MaxMana
	defs.ManaRegen = a.ManaRegen
	if a.RegenInterval > 0 {
		defs.RegenInterval = a.RegenInterval
	}
	defs.CritChance = a.CritChance
	if a.CritMultiplier > 0 {
		defs.CritMultiplier = a.CritMultiplier
	}
	defs.Variance = a.Variance
	defs.RateWindow = a.RateWindow
	if len(raw.CooldownOrder) > 0 {
		defs.Cooldowns = append([]types.SpellID(nil), raw.CooldownOrder...)
	}
	return defs
}
