// Package decider implements the Autonomous Decider (spec component 11):
// assembles a decision context, calls the LLM to choose the protagonist's
// next action, validates the result, and falls back to a deterministic
// heuristic after repeated validation failures.
package decider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wayfarer/internal/action"
	"wayfarer/internal/entity"
	"wayfarer/internal/llm"
)

// RecentEventWindow is the default count of recent events included in the
// decision context (spec §4.11 "last K").
const RecentEventWindow = 10

// MaxValidationFailures is how many consecutive invalid LLM choices trigger
// the deterministic heuristic fallback (spec §4.11 "fails twice in a row").
const MaxValidationFailures = 2

// AllowedKinds is the full action-kind vocabulary the decider may choose
// from (spec §4.10).
var AllowedKinds = []action.Kind{
	action.KindTravel, action.KindInvestigate, action.KindRest, action.KindSearch,
	action.KindTrade, action.KindUseItem, action.KindEquip, action.KindUnequip,
	action.KindConversation, action.KindGroupConversation,
}

// Choice is the parsed, validated decision.
type Choice struct {
	Action action.Action
	Reason string
}

// rawChoice is the strict shape the LLM must return (spec §4.11).
type rawChoice struct {
	ActionType string `json:"actionType"`
	Target     string `json:"target"`
	Reason     string `json:"reason"`
}

// Decider drives one autonomous decision per frame.
type Decider struct {
	World *entity.World
	LLM   *llm.Client

	failures int
}

// New constructs a Decider.
func New(world *entity.World, client *llm.Client) *Decider {
	return &Decider{World: world, LLM: client}
}

// Decide builds context, calls the LLM, validates the choice, and falls
// back to the heuristic after MaxValidationFailures consecutive rejections.
func (d *Decider) Decide(ctx context.Context, recentEvents []entity.Event) Choice {
	protagonist := d.World.Protagonist()
	if protagonist == nil {
		return Choice{Action: action.Action{Kind: action.KindRest, Params: map[string]any{"duration": 60}}, Reason: "no protagonist"}
	}

	prompt := d.buildPrompt(protagonist, recentEvents)
	req := llm.Request{
		Frame:     d.World.Frame,
		Subsystem: "AutonomousDecider",
		Operation: "decide",
		Prompt:    prompt,
		Fallback:  func() string { return `{"actionType":"rest","target":"","reason":"fallback"}` },
	}
	res, _ := d.LLM.Generate(ctx, req)

	choice, err := d.parseAndValidate(res.Text, protagonist)
	if err != nil {
		d.failures++
		if d.failures >= MaxValidationFailures {
			d.failures = 0
			return d.heuristic(protagonist)
		}
		return Choice{
			Action: action.Action{Kind: action.KindRest, ActorID: protagonist.ID, Params: map[string]any{"duration": 10}},
			Reason: "invalid decision, waiting to retry",
		}
	}
	d.failures = 0
	return choice
}

func (d *Decider) buildPrompt(protagonist *entity.Character, recentEvents []entity.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Protagonist %s: HP %d/%d, gold %d, location %s.\n",
		protagonist.Name, protagonist.Stats.HP, protagonist.Stats.MaxHP, protagonist.Inventory.Gold, protagonist.CurrentLocation)

	if loc := d.World.Locations[protagonist.CurrentLocation]; loc != nil {
		fmt.Fprintf(&b, "At %s: %s\n", loc.Name, loc.Description())
		for _, npc := range d.World.NPCsAt(loc.ID) {
			fmt.Fprintf(&b, "Visible NPC: %s\n", npc.Name)
		}
	}

	events := recentEvents
	if len(events) > RecentEventWindow {
		events = events[len(events)-RecentEventWindow:]
	}
	for _, e := range events {
		fmt.Fprintf(&b, "Recent event: %s\n", e.Kind)
	}

	for _, q := range d.World.ActiveQuestsInvolving(protagonist.ID) {
		fmt.Fprintf(&b, "Active quest: %s, next step hint: %v\n", q.Title, q.Guidance.Hints)
	}
	for _, q := range d.World.ActiveQuests {
		fmt.Fprintf(&b, "Quest guidance: %s next location %s next npc %s\n", q.Title, q.Guidance.NextLocationID, q.Guidance.NextNPCID)
	}

	b.WriteString("Choose one action kind from: travel, investigate, rest, search, trade, use_item, equip, unequip, conversation, group_conversation.\n")
	b.WriteString(`Reply as JSON: {"actionType":"...","target":"...","reason":"..."}` + "\n")
	return b.String()
}

// parseAndValidate strictly parses the LLM's JSON and checks that the kind
// is allowed, the target resolves, and preconditions hold (spec §4.11).
func (d *Decider) parseAndValidate(raw string, protagonist *entity.Character) (Choice, error) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return Choice{}, fmt.Errorf("no JSON object in decider response")
	}
	var parsed rawChoice
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err != nil {
		return Choice{}, fmt.Errorf("decider response parse failed: %w", err)
	}

	kind := action.Kind(parsed.ActionType)
	if !isAllowedKind(kind) {
		return Choice{}, fmt.Errorf("disallowed action kind %q", kind)
	}

	if err := d.checkPreconditions(kind, parsed.Target, protagonist); err != nil {
		return Choice{}, err
	}

	return Choice{
		Action: action.Action{Kind: kind, ActorID: protagonist.ID, Target: parsed.Target},
		Reason: parsed.Reason,
	}, nil
}

func isAllowedKind(kind action.Kind) bool {
	for _, k := range AllowedKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (d *Decider) checkPreconditions(kind action.Kind, target string, protagonist *entity.Character) error {
	switch kind {
	case action.KindTravel:
		if _, ok := d.World.Locations[target]; !ok && !locationExistsByName(d.World, target) {
			return fmt.Errorf("travel target %q does not resolve", target)
		}
	case action.KindConversation:
		if _, ok := d.World.Characters[target]; !ok {
			return fmt.Errorf("conversation target %q does not resolve", target)
		}
	case action.KindTrade:
		if _, ok := d.World.Characters[target]; !ok {
			return fmt.Errorf("trade target %q does not resolve", target)
		}
	}
	return nil
}

func locationExistsByName(world *entity.World, target string) bool {
	lower := strings.ToLower(target)
	for _, loc := range world.Locations {
		if strings.Contains(strings.ToLower(loc.Name), lower) {
			return true
		}
	}
	return false
}

// heuristic implements the deterministic fallback of spec §4.11: "travel
// toward next quest location if any, else talk to a nearby NPC, else rest."
func (d *Decider) heuristic(protagonist *entity.Character) Choice {
	for _, q := range d.World.ActiveQuests {
		if q.Guidance.NextLocationID != "" && q.Guidance.NextLocationID != protagonist.CurrentLocation {
			return Choice{
				Action: action.Action{Kind: action.KindTravel, ActorID: protagonist.ID, Target: q.Guidance.NextLocationID},
				Reason: "heuristic: traveling toward quest objective",
			}
		}
	}

	if loc := d.World.Locations[protagonist.CurrentLocation]; loc != nil {
		if npcs := d.World.NPCsAt(loc.ID); len(npcs) > 0 {
			return Choice{
				Action: action.Action{Kind: action.KindConversation, ActorID: protagonist.ID, Target: npcs[0].ID},
				Reason: "heuristic: talking to a nearby NPC",
			}
		}
	}

	return Choice{
		Action: action.Action{Kind: action.KindRest, ActorID: protagonist.ID, Params: map[string]any{"duration": 60}},
		Reason: "heuristic: nothing else to do, resting",
	}
}
