// Package combat implements the Combat Subsystem (spec component 9):
// encounter generation, turn-based resolution, and the narration hook.
// Mechanics compute first; text comes from the LLM second and never gates
// resolution (spec §4.9).
package combat

import (
	"context"
	"math/rand"

	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/llm"
)

// Behavior is an enemy's turn-selection template (spec §4.9).
type Behavior string

const (
	BehaviorAggressive Behavior = "aggressive"
	BehaviorCautious   Behavior = "cautious"
	BehaviorDefensive  Behavior = "defensive"
	BehaviorBalanced   Behavior = "balanced"
	BehaviorRanged     Behavior = "ranged"
)

// Tuning holds the numeric constants of spec §4.9, deliberately
// under-specified by the source and chosen here (see DESIGN.md) to target a
// median 6-12 round combat.
type Tuning struct {
	BaseHitChance   float64
	CritThreshold   float64 // upper tail of the hit roll counted as a crit
	WeaponMultiplier float64
	FleeBase        float64
}

// DefaultTuning is the constant set used unless the caller overrides it.
var DefaultTuning = Tuning{
	BaseHitChance:    0.65,
	CritThreshold:    0.95,
	WeaponMultiplier: 1.0,
	FleeBase:         0.4,
}

// Subsystem resolves combat encounters against a shared World.
type Subsystem struct {
	World   *entity.World
	Bus     *eventbus.Bus
	LLM     *llm.Client
	Stream  *rand.Rand
	Tuning  Tuning
	Behaviors map[string]Behavior // enemy character id -> behavior template
}

// New constructs a Subsystem drawing from the combat rng stream.
func New(world *entity.World, bus *eventbus.Bus, client *llm.Client, stream *rand.Rand) *Subsystem {
	return &Subsystem{World: world, Bus: bus, LLM: client, Stream: stream, Tuning: DefaultTuning, Behaviors: map[string]Behavior{}}
}

// dangerTable weights initial enemy distance bands by location danger
// (spec §4.9 "small weighted table keyed by location danger").
var dangerTable = map[string][]entity.Band{
	"low":    {entity.BandMedium, entity.BandMedium, entity.BandClose},
	"medium": {entity.BandClose, entity.BandMedium, entity.BandClose},
	"high":   {entity.BandClose, entity.BandClose, entity.BandMelee},
}

// Start computes initiative and positions and creates the encounter. The
// caller (Action Executor) is responsible for publishing combat_started
// after this returns, so it can include its own action metadata.
func (s *Subsystem) Start(id string, protagonistID string, enemyIDs []string, locationDanger string) *entity.CombatEncounter {
	participants := append([]string{protagonistID}, enemyIDs...)
	enc := &entity.CombatEncounter{
		ID:             id,
		ParticipantIDs: participants,
		Initiative:     map[string]int{},
		Positions:      map[string]entity.Band{},
		MaxRounds:      entity.DefaultMaxRounds,
		Round:          1,
	}

	for _, pid := range participants {
		c := s.World.Characters[pid]
		if c == nil {
			continue
		}
		score := c.Stats.Attributes.Dexterity + s.Stream.Intn(6)
		enc.Initiative[pid] = score
	}
	enc.TurnOrder = orderByInitiative(participants, enc.Initiative)

	bands := dangerTable[locationDanger]
	if len(bands) == 0 {
		bands = dangerTable["medium"]
	}
	enc.Positions[protagonistID] = entity.BandMelee
	for _, eid := range enemyIDs {
		enc.Positions[eid] = bands[s.Stream.Intn(len(bands))]
	}

	s.World.Combats[id] = enc
	return enc
}

func orderByInitiative(ids []string, init map[string]int) []string {
	out := append([]string{}, ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && init[out[j]] > init[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Action is one combatant's chosen move for a round.
type Action struct {
	ActorID  string
	Kind     string // attack, ability, move_closer, move_further, defend, flee
	TargetID string
	AbilityID string
}

// RunRound executes one full round of turns for the encounter; callers read
// enc.Resolved afterwards to see whether it ended. choose supplies the action for
// each non-dead combatant in turn order (the protagonist's choice routes
// through the Autonomous Decider / tactical AI; enemies use ChooseEnemyAction).
func (s *Subsystem) RunRound(ctx context.Context, enc *entity.CombatEncounter, choose func(actorID string) Action) {
	for _, actorID := range enc.TurnOrder {
		actor := s.World.Characters[actorID]
		if actor == nil || actor.IsDead() {
			continue
		}
		if s.checkOutcome(enc) {
			return
		}
		// A defend taken on this combatant's previous turn has protected
		// them through everyone else's turns since; it lapses the moment
		// they act again.
		if enc.Defending != nil {
			enc.Defending[actorID] = false
		}
		act := choose(actorID)
		s.resolveAction(ctx, enc, actor, act)
		if s.checkOutcome(enc) {
			return
		}
	}
	enc.Round++
	if enc.Round > enc.MaxRounds {
		s.finish(enc, entity.OutcomeTimeout)
	}
}

func (s *Subsystem) resolveAction(ctx context.Context, enc *entity.CombatEncounter, actor *entity.Character, act Action) {
	entry := entity.CombatLogEntry{Round: enc.Round, ActorID: actor.ID, Action: act.Kind, TargetID: act.TargetID}

	switch act.Kind {
	case "attack":
		s.resolveAttack(enc, actor, act, &entry, false)
	case "ability":
		s.resolveAttack(enc, actor, act, &entry, true)
	case "move_closer":
		moveBand(enc, actor.ID, -1)
	case "move_further":
		moveBand(enc, actor.ID, 1)
	case "defend":
		if enc.Defending == nil {
			enc.Defending = map[string]bool{}
		}
		enc.Defending[actor.ID] = true
		entry.Narration = "braces for the next blow"
	case "flee":
		if s.Stream.Float64() < s.fleeChance(actor) {
			enc.Resolved = true
			enc.Outcome = entity.OutcomeFlee
		}
	}

	entry.Narration = s.narrate(ctx, enc, entry)
	enc.Log = append(enc.Log, entry)

	s.Bus.Publish(entity.Event{
		Frame:   s.World.Frame,
		Kind:    entity.EventCombatTurn,
		ActorID: actor.ID,
		Payload: map[string]any{"combat_id": enc.ID, "round": enc.Round, "action": act.Kind, "narration": entry.Narration},
	})
	s.Bus.Drain()
}

func (s *Subsystem) resolveAttack(enc *entity.CombatEncounter, actor *entity.Character, act Action, entry *entity.CombatLogEntry, isAbility bool) {
	target := s.World.Characters[act.TargetID]
	if target == nil {
		return
	}
	dodge := float64(target.Stats.Attributes.Dexterity) / 200.0
	hitRoll := s.Stream.Float64()
	hitChance := s.Tuning.BaseHitChance + float64(actor.Stats.Attributes.Dexterity)/20.0 - dodge
	hit := hitRoll < hitChance
	entry.Hit = hit
	if !hit {
		return
	}

	mul := s.Tuning.WeaponMultiplier
	if isAbility {
		mul *= 1.5
	}
	dmg := int(float64(actor.Stats.Attack)*mul) - target.Stats.Defense
	if dmg < 1 {
		dmg = 1
	}
	if hitRoll >= s.Tuning.CritThreshold {
		dmg *= 2
		entry.Crit = true
	}
	if enc.Defending[target.ID] {
		dmg /= 2
		if dmg < 1 {
			dmg = 1
		}
	}
	target.ApplyDamage(dmg)
	entry.Damage = dmg

	if target.IsDead() {
		s.Bus.Publish(entity.Event{
			Frame:   s.World.Frame,
			Kind:    entity.EventCharacterDied,
			ActorID: target.ID,
			Payload: map[string]any{"combat_id": enc.ID},
		})
	}
}

func (s *Subsystem) fleeChance(actor *entity.Character) float64 {
	return s.Tuning.FleeBase + float64(actor.Stats.Attributes.Dexterity)/200.0
}

func moveBand(enc *entity.CombatEncounter, actorID string, delta int) {
	order := []entity.Band{entity.BandMelee, entity.BandClose, entity.BandMedium, entity.BandLong}
	idx := 0
	for i, b := range order {
		if b == enc.Positions[actorID] {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(order) {
		idx = len(order) - 1
	}
	enc.Positions[actorID] = order[idx]
}

// checkOutcome evaluates victory/defeat and finishes the encounter if so.
func (s *Subsystem) checkOutcome(enc *entity.CombatEncounter) bool {
	if enc.Resolved {
		return true
	}
	protagonist := s.World.Protagonist()
	if protagonist != nil && protagonist.IsDead() {
		s.finish(enc, entity.OutcomeDefeat)
		return true
	}
	allEnemiesDead := true
	for _, pid := range enc.ParticipantIDs {
		if pid == enc.ParticipantIDs[0] {
			continue
		}
		c := s.World.Characters[pid]
		if c != nil && !c.IsDead() {
			allEnemiesDead = false
			break
		}
	}
	if allEnemiesDead {
		s.finish(enc, entity.OutcomeVictory)
		return true
	}
	return false
}

func (s *Subsystem) finish(enc *entity.CombatEncounter, outcome entity.Outcome) {
	enc.Resolved = true
	enc.Outcome = outcome
	if outcome == entity.OutcomeVictory {
		enc.Reward = s.computeRewards(enc)
	}
	s.Bus.Publish(entity.Event{
		Frame: s.World.Frame,
		Kind:  entity.EventCombatEnded,
		Payload: map[string]any{
			"combat_id": enc.ID,
			"outcome":   string(outcome),
			"xp":        enc.Reward.Experience,
			"gold":      enc.Reward.Gold,
			"loot":      enc.Reward.Items,
		},
	})
	s.Bus.Drain()
}

// computeRewards sums a defeated-enemy loot table (spec §4.9), zero on
// non-victory outcomes.
func (s *Subsystem) computeRewards(enc *entity.CombatEncounter) entity.RewardPayload {
	var reward entity.RewardPayload
	for _, pid := range enc.ParticipantIDs[1:] {
		c := s.World.Characters[pid]
		if c == nil {
			continue
		}
		reward.Experience += 20 + c.Stats.Level*10
		reward.Gold += 5 + c.Stats.Level*2
	}
	return reward
}

// narrate asks the LLM to describe entry; mechanics are already resolved,
// so narration failures fall back silently and never change the outcome.
func (s *Subsystem) narrate(ctx context.Context, enc *entity.CombatEncounter, entry entity.CombatLogEntry) string {
	prompt := "Narrate one combat beat: " + entry.ActorID + " uses " + entry.Action + " against " + entry.TargetID + "."
	req := llm.Request{
		Frame:     s.World.Frame,
		Subsystem: "CombatSubsystem",
		Operation: "narrate_turn",
		Prompt:    prompt,
		Fallback:  func() string { return genericNarration(entry) },
	}
	res, _ := s.LLM.Generate(ctx, req)
	return res.Text
}

func genericNarration(entry entity.CombatLogEntry) string {
	if entry.Hit {
		return entry.ActorID + " strikes " + entry.TargetID + "."
	}
	return entry.ActorID + "'s attack goes wide."
}

// ChooseProtagonistAction is the tactical AI the Decider may defer to (spec
// §4.9): a simple utility function over HP and distance, used when no
// explicit player/decider action is supplied for a combat round. It never
// picks an ability, so ability costs and cooldowns are not considered.
func (s *Subsystem) ChooseProtagonistAction(enc *entity.CombatEncounter, protagonistID string) Action {
	protagonist := s.World.Characters[protagonistID]
	if protagonist == nil {
		return Action{ActorID: protagonistID, Kind: "defend"}
	}

	nearestEnemy := ""
	for _, pid := range enc.ParticipantIDs[1:] {
		enemy := s.World.Characters[pid]
		if enemy == nil || enemy.IsDead() {
			continue
		}
		if nearestEnemy == "" {
			nearestEnemy = pid
			continue
		}
		if bandRank(enc.Positions[pid]) < bandRank(enc.Positions[nearestEnemy]) {
			nearestEnemy = pid
		}
	}
	if nearestEnemy == "" {
		return Action{ActorID: protagonistID, Kind: "defend"}
	}

	if protagonist.Stats.HP < protagonist.Stats.MaxHP/4 {
		return Action{ActorID: protagonistID, Kind: "defend"}
	}
	if enc.Positions[protagonistID] != entity.BandMelee {
		return Action{ActorID: protagonistID, Kind: "move_closer"}
	}
	return Action{ActorID: protagonistID, Kind: "attack", TargetID: nearestEnemy}
}

func bandRank(b entity.Band) int {
	switch b {
	case entity.BandMelee:
		return 0
	case entity.BandClose:
		return 1
	case entity.BandMedium:
		return 2
	default:
		return 3
	}
}

// ChooseEnemyAction picks an action for an enemy combatant per its behavior
// template (spec §4.9).
func (s *Subsystem) ChooseEnemyAction(enc *entity.CombatEncounter, enemyID string, behavior Behavior, protagonistID string) Action {
	switch behavior {
	case BehaviorCautious:
		enemy := s.World.Characters[enemyID]
		if enemy != nil && enemy.Stats.HP < enemy.Stats.MaxHP/4 {
			return Action{ActorID: enemyID, Kind: "move_further"}
		}
		return Action{ActorID: enemyID, Kind: "attack", TargetID: protagonistID}
	case BehaviorDefensive:
		return Action{ActorID: enemyID, Kind: "defend"}
	case BehaviorRanged:
		if enc.Positions[enemyID] == entity.BandMelee {
			return Action{ActorID: enemyID, Kind: "move_further"}
		}
		return Action{ActorID: enemyID, Kind: "attack", TargetID: protagonistID}
	default: // aggressive, balanced
		if enc.Positions[enemyID] != entity.BandMelee {
			return Action{ActorID: enemyID, Kind: "move_closer"}
		}
		return Action{ActorID: enemyID, Kind: "attack", TargetID: protagonistID}
	}
}
