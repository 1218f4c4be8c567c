// Package quest implements Quest Progression (spec component 8): objective
// detection from bus events, guidance updates, reward grants, and two-stage
// detection of new quests surfaced during dialogue.
package quest

import (
	"context"
	"strconv"
	"strings"

	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/llm"
)

// NewQuestKeywords is the stage-1 keyword screen of spec §4.8.
var NewQuestKeywords = []string{"help", "problem", "trouble", "missing", "find", "rescue"}

// DetectionThreshold is the minimum LLM-reported confidence (0-100) for a
// screened line to become a quest proposal (spec §4.8).
const DetectionThreshold = 60

// LevelUpThreshold is the experience total at which a character gains a
// level, applied repeatedly so multiple level-ups from one grant all fire
// (spec §8 S5 "level_up event iff experience crosses a level threshold").
const LevelUpThreshold = 1000

// Proposal is the structured quest proposal an LLM call returns in stage 2.
type Proposal struct {
	Confidence  int
	Type        string
	Title       string
	Description string
	TargetHint  string
}

// ProposalBuilder parses a proposal out of the LLM's raw text. Grounded on
// the teacher's strict-parse-then-validate pattern (internal/decider mirrors
// the same shape for action choices).
type ProposalBuilder func(raw string) (Proposal, bool)

// Progression is the session-owned quest tracker.
type Progression struct {
	World *entity.World
	Bus   *eventbus.Bus
	LLM   *llm.Client
	Parse ProposalBuilder

	// AllowGroup permits new-quest detection during group conversations.
	// Gated per spec §9's "Unresolved" note: default true, can be disabled
	// if false-positive rates prove high.
	AllowGroup bool

	nextQuestID func() string
}

// New constructs a Progression. idGen mints quest ids for auto-detected
// quests.
func New(world *entity.World, bus *eventbus.Bus, client *llm.Client, parse ProposalBuilder, idGen func() string) *Progression {
	return &Progression{World: world, Bus: bus, LLM: client, Parse: parse, AllowGroup: true, nextQuestID: idGen}
}

// OnDialogueTurn implements dialogue.QuestNotifier: inspects a turn for
// talk/learn objective matches and, on the player's turns, screens for new
// quests.
func (p *Progression) OnDialogueTurn(world *entity.World, conv *entity.Conversation, speakerID, text string, frame int) {
	p.scanLearnObjectives(text, frame)
	if conv.Group && !p.AllowGroup {
		return
	}
	if world.Protagonist() != nil && speakerID == world.ProtagonistID {
		p.screenForNewQuest(conv, text, frame)
	}
}

// HandleEvent dispatches a bus event to the objective-completion scanners
// relevant to its kind (spec §4.8 listens-to list). Wire via
// bus.Subscribe(kind, progression.HandleEvent) for each listened kind, or
// bus.SubscribeAll for a single catch-all registration.
func (p *Progression) HandleEvent(e entity.Event) {
	switch e.Kind {
	case entity.EventDialogueStarted:
		if npcID, ok := e.Payload["npc_id"].(string); ok && npcID != "" {
			p.scanTalkObjectives(npcID, e.Frame)
		}
	case entity.EventLocationChanged:
		if locID, ok := e.Payload["to"].(string); ok {
			p.scanVisitObjectives(locID, e.Frame)
		}
	case entity.EventCombatEnded:
		p.scanDefeatObjectives(e, e.Frame)
	case entity.EventLootObtained:
		if itemID, ok := e.Payload["item_id"].(string); ok {
			p.scanCollectObjectives(itemID, e.Frame)
		}
	}
}

func (p *Progression) scanTalkObjectives(npcID string, frame int) {
	p.forEachFirstIncomplete(entity.ObjectiveTalk, func(q *entity.Quest, o *entity.Objective) bool {
		return o.TargetID == npcID
	}, frame)
}

func (p *Progression) scanVisitObjectives(locationID string, frame int) {
	p.forEachFirstIncomplete(entity.ObjectiveVisit, func(q *entity.Quest, o *entity.Objective) bool {
		return o.TargetID == locationID
	}, frame)
}

func (p *Progression) scanDefeatObjectives(e entity.Event, frame int) {
	outcome, _ := e.Payload["outcome"].(string)
	if outcome != "victory" {
		return
	}
	enemyType, _ := e.Payload["enemy_type"].(string)
	p.forEachFirstIncomplete(entity.ObjectiveDefeat, func(q *entity.Quest, o *entity.Objective) bool {
		return o.TargetID == "" || o.TargetID == enemyType
	}, frame)
}

func (p *Progression) scanCollectObjectives(itemID string, frame int) {
	for _, t := range []entity.ObjectiveType{entity.ObjectiveCollect, entity.ObjectiveDeliver} {
		p.forEachFirstIncomplete(t, func(q *entity.Quest, o *entity.Objective) bool {
			return o.TargetID == itemID
		}, frame)
	}
}

func (p *Progression) scanLearnObjectives(text string, frame int) {
	lower := strings.ToLower(text)
	p.forEachFirstIncomplete(entity.ObjectiveLearn, func(q *entity.Quest, o *entity.Objective) bool {
		for _, kw := range o.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	}, frame)
}

// forEachFirstIncomplete scans every active quest's first incomplete
// objective (spec §4.8 "scans the first incomplete objective"), completing
// it via match when it matches objType.
func (p *Progression) forEachFirstIncomplete(objType entity.ObjectiveType, match func(*entity.Quest, *entity.Objective) bool, frame int) {
	for _, q := range p.World.ActiveQuests {
		idx := q.FirstIncomplete()
		if idx >= len(q.Objectives) {
			continue
		}
		o := &q.Objectives[idx]
		if o.Type != objType {
			continue
		}
		if match(q, o) {
			p.completeObjective(q, o, frame)
		}
	}
}

func (p *Progression) completeObjective(q *entity.Quest, o *entity.Objective, frame int) {
	o.Completed = true
	p.Bus.Publish(entity.Event{
		Frame: frame,
		Kind:  entity.EventQuestObjectiveComplete,
		Payload: map[string]any{
			"quest_id":    q.ID,
			"description": o.Description,
		},
	})

	wasComplete := q.State == entity.QuestCompleted
	q.RefreshGuidance()
	p.Bus.Publish(entity.Event{
		Frame:   frame,
		Kind:    entity.EventQuestUpdated,
		Payload: map[string]any{"quest_id": q.ID, "guidance": q.Guidance},
	})

	if q.State == entity.QuestCompleted && !wasComplete {
		p.World.CompleteQuest(q.ID)
		p.Bus.Publish(entity.Event{Frame: frame, Kind: entity.EventQuestCompleted, Payload: map[string]any{"quest_id": q.ID}})
		p.grantRewards(q, frame)
	}
	p.Bus.Drain()
}

// grantRewards mutates the protagonist per the quest's Rewards (spec §4.8,
// §8 S5), publishing gold_changed, loot_obtained and level_up as needed.
func (p *Progression) grantRewards(q *entity.Quest, frame int) {
	protag := p.World.Protagonist()
	if protag == nil {
		return
	}
	if q.Rewards.Gold != 0 {
		previous := protag.Inventory.Gold
		protag.Inventory.Gold += q.Rewards.Gold
		p.Bus.Publish(entity.Event{
			Frame: frame,
			Kind:  entity.EventGoldChanged,
			Payload: map[string]any{
				"amount":    q.Rewards.Gold,
				"new_total": protag.Inventory.Gold,
				"previous":  previous,
			},
		})
	}
	if len(q.Rewards.Items) > 0 {
		protag.Inventory.Slots = append(protag.Inventory.Slots, q.Rewards.Items...)
		p.Bus.Publish(entity.Event{
			Frame:   frame,
			Kind:    entity.EventLootObtained,
			Payload: map[string]any{"items": q.Rewards.Items},
		})
	}
	if q.Rewards.Experience != 0 {
		p.grantExperience(protag, q.Rewards.Experience, frame)
	}
}

func (p *Progression) grantExperience(c *entity.Character, amount int, frame int) {
	c.Stats.Experience += amount
	for c.Stats.Experience >= (c.Stats.Level+1)*LevelUpThreshold {
		c.Stats.Level++
		c.Stats.MaxHP += 10
		c.Stats.HP = c.Stats.MaxHP
		c.Stats.Attack += 2
		c.Stats.Defense += 1
		p.Bus.Publish(entity.Event{
			Frame:   frame,
			Kind:    entity.EventLevelUp,
			ActorID: c.ID,
			Payload: map[string]any{"level": c.Stats.Level},
		})
	}
}

// screenForNewQuest runs the two-stage pipeline of spec §4.8: a keyword
// screen, then (on a hit) an LLM call for a confidence-scored proposal.
func (p *Progression) screenForNewQuest(conv *entity.Conversation, text string, frame int) {
	lower := strings.ToLower(text)
	hit := false
	for _, kw := range NewQuestKeywords {
		if strings.Contains(lower, kw) {
			hit = true
			break
		}
	}
	if !hit {
		return
	}

	var npcID string
	for _, pid := range conv.Participants {
		if c := p.World.Characters[pid]; c != nil && c.Role == entity.RoleNPC {
			npcID = pid
			break
		}
	}

	prompt := "A player said: \"" + text + "\". Does this describe a quest request? " +
		"Reply with confidence 0-100, a short title, description, and quest type."
	req := llm.Request{
		Frame:     frame,
		Subsystem: "QuestProgression",
		Operation: "detect_new_quest",
		Prompt:    prompt,
		Fallback:  func() string { return "confidence:0" },
	}
	res, err := p.LLM.Generate(context.Background(), req)
	if err != nil || p.Parse == nil {
		return
	}
	proposal, ok := p.Parse(res.Text)
	if !ok || proposal.Confidence < DetectionThreshold {
		return
	}

	id := ""
	if p.nextQuestID != nil {
		id = p.nextQuestID()
	} else {
		id = "quest-" + strconv.Itoa(len(p.World.ActiveQuests)+len(p.World.CompletedQuests)+1)
	}
	objType := objectiveTypeFor(proposal.Type)
	q := &entity.Quest{
		ID:          id,
		Title:       proposal.Title,
		Description: proposal.Description,
		GiverID:     npcID,
		Type:        proposal.Type,
		Objectives: []entity.Objective{
			{ID: id + "-obj-1", Description: proposal.Description, Type: objType, TargetID: proposal.TargetHint},
		},
		State: entity.QuestActive,
		Metadata: entity.Metadata{
			Confidence: proposal.Confidence,
			OriginNPC:  npcID,
		},
	}
	q.RefreshGuidance()
	p.World.ActiveQuests[id] = q
	p.Bus.Publish(entity.Event{
		Frame:   frame,
		Kind:    entity.EventQuestCreated,
		Payload: map[string]any{"quest_id": id, "title": q.Title, "confidence": proposal.Confidence},
	})
	p.Bus.Drain()
}

// objectiveTypeFor maps a proposal's free-text quest type onto the fixed
// objective vocabulary the scanners recognize, defaulting to "talk" (the
// one objective every quest giver can satisfy by conversation alone) when
// the model's answer doesn't match a known kind.
func objectiveTypeFor(raw string) entity.ObjectiveType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(entity.ObjectiveVisit):
		return entity.ObjectiveVisit
	case string(entity.ObjectiveLearn):
		return entity.ObjectiveLearn
	case string(entity.ObjectiveCollect):
		return entity.ObjectiveCollect
	case string(entity.ObjectiveDefeat):
		return entity.ObjectiveDefeat
	case string(entity.ObjectiveEscort):
		return entity.ObjectiveEscort
	case string(entity.ObjectiveDeliver):
		return entity.ObjectiveDeliver
	default:
		return entity.ObjectiveTalk
	}
}

// DefaultProposalBuilder parses the "key: value" line format the stage-2
// prompt (screenForNewQuest) asks the model to reply in. Lines it does not
// recognize are ignored rather than rejected, so minor model chattiness
// around the requested fields doesn't break detection.
func DefaultProposalBuilder(raw string) (Proposal, bool) {
	var p Proposal
	found := false
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "confidence":
			if n, err := strconv.Atoi(strings.TrimSuffix(value, "%")); err == nil {
				p.Confidence = n
				found = true
			}
		case "type", "quest type":
			p.Type = value
		case "title":
			p.Title = value
		case "description":
			p.Description = value
		case "target", "target hint":
			p.TargetHint = value
		}
	}
	return p, found
}
