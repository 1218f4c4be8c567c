// Package dialogue implements the Dialogue Subsystem (spec component 7):
// 1:1 and group conversations, prompt context assembly, and turn ordering.
package dialogue

import (
	"context"
	"fmt"
	"strings"

	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/llm"
)

// HistoryWindow is the default number of recent turns included in prompt
// context assembly (spec §4.7).
const HistoryWindow = 6

// QuestNotifier lets the dialogue subsystem hand each turn to Quest
// Progression without importing it directly (it would import dialogue's
// entity types, not the reverse).
type QuestNotifier interface {
	OnDialogueTurn(world *entity.World, conv *entity.Conversation, speakerID, text string, frame int)
}

// Subsystem drives conversations against a shared World.
type Subsystem struct {
	World *entity.World
	Bus   *eventbus.Bus
	LLM   *llm.Client
	Quest QuestNotifier
}

// New constructs a Subsystem.
func New(world *entity.World, bus *eventbus.Bus, client *llm.Client, quest QuestNotifier) *Subsystem {
	return &Subsystem{World: world, Bus: bus, LLM: client, Quest: quest}
}

// ErrTooFewParticipants is returned by Start when fewer than two
// participants are given (spec §8 "exactly-one-participant conversation is
// rejected").
var ErrTooFewParticipants = fmt.Errorf("conversation requires at least two participants")

// Start begins a new conversation. topicHint is optional extra context
// recorded on the conversation for quest-detection keyword screening.
func (s *Subsystem) Start(id string, participants []string, topicHint string) (*entity.Conversation, error) {
	if len(participants) < 2 {
		return nil, ErrTooFewParticipants
	}
	conv := &entity.Conversation{
		ID:           id,
		Participants: append([]string{}, participants...),
		StartFrame:   s.World.Frame,
		Active:       true,
		Group:        len(participants) > 2,
		TurnCounts:   map[string]int{},
	}
	if topicHint != "" {
		conv.TopicHints = append(conv.TopicHints, topicHint)
	}
	s.World.Conversations[id] = conv

	var npcID string
	for _, p := range participants {
		if c := s.World.Characters[p]; c != nil && c.Role == entity.RoleNPC {
			npcID = p
			break
		}
	}
	s.Bus.Publish(entity.Event{
		Frame: s.World.Frame,
		Kind:  entity.EventDialogueStarted,
		Payload: map[string]any{
			"conversation_id": id,
			"participants":    participants,
			"npc_id":          npcID,
			"group":           conv.Group,
		},
	})
	s.Bus.Drain()
	return conv, nil
}

// AddTurn generates (or accepts, for the player) one turn of dialogue,
// records it, notifies Quest Progression, and publishes dialogue_turn.
func (s *Subsystem) AddTurn(ctx context.Context, convID, speakerID, playerText string) (string, error) {
	conv := s.World.Conversations[convID]
	if conv == nil || !conv.Active {
		return "", fmt.Errorf("no active conversation %q", convID)
	}

	var text string
	if playerText != "" {
		text = playerText
	} else {
		text = s.generateLine(ctx, conv, speakerID)
	}

	conv.RecordTurn(speakerID, text, s.World.Frame)

	if s.Quest != nil {
		s.Quest.OnDialogueTurn(s.World, conv, speakerID, text, s.World.Frame)
	}

	s.Bus.Publish(entity.Event{
		Frame:   s.World.Frame,
		Kind:    entity.EventDialogueTurn,
		ActorID: speakerID,
		Payload: map[string]any{
			"conversation_id": convID,
			"text":            text,
		},
	})
	s.Bus.Drain()
	return text, nil
}

// SuggestNextSpeaker delegates to the conversation's round-robin rule
// (spec §4.7); the autonomous decider or player input may override it.
func (s *Subsystem) SuggestNextSpeaker(convID string) string {
	conv := s.World.Conversations[convID]
	if conv == nil {
		return ""
	}
	return conv.SuggestNextSpeaker()
}

// End closes a conversation: publishes dialogue_ended, applies relationship
// deltas clamped to [-100,100] (+1 for 1:1; for groups +0.5 per other
// participant, which AdjustRelationshipFloat rounds to +1 on the integer
// relationship scale, so groups end up with the same +1), and writes a
// memory record into every participant.
func (s *Subsystem) End(convID string) {
	conv := s.World.Conversations[convID]
	if conv == nil || !conv.Active {
		return
	}
	conv.Active = false

	turnTotal := len(conv.History)
	for _, pid := range conv.Participants {
		c := s.World.Characters[pid]
		if c == nil {
			continue
		}
		for _, other := range conv.Participants {
			if other == pid {
				continue
			}
			if conv.Group {
				c.AdjustRelationshipFloat(other, 0.5)
			} else {
				c.AdjustRelationship(other, 1)
			}
		}
		importance := turnTotal
		if importance > 10 {
			importance = 10
		}
		c.AddMemory(entity.Memory{
			Kind:       entity.MemoryConversation,
			Summary:    conversationSummary(conv),
			Importance: importance,
			Frame:      s.World.Frame,
		})
	}

	s.Bus.Publish(entity.Event{
		Frame: s.World.Frame,
		Kind:  entity.EventDialogueEnded,
		Payload: map[string]any{
			"conversation_id": convID,
			"turn_count":      turnTotal,
		},
	})
	s.Bus.Drain()
}

func conversationSummary(conv *entity.Conversation) string {
	if len(conv.History) == 0 {
		return "a conversation with no exchanged words"
	}
	last := conv.History[len(conv.History)-1]
	return fmt.Sprintf("talked with %s, ending on %q", strings.Join(conv.Participants, ", "), truncateLine(last.Text, 80))
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// generateLine calls the LLM with assembled context, falling back to a
// canned template on failure (spec §4.7 "Failure semantics").
func (s *Subsystem) generateLine(ctx context.Context, conv *entity.Conversation, speakerID string) string {
	speaker := s.World.Characters[speakerID]
	isGreeting := len(conv.History) == 0
	prompt := s.buildPrompt(conv, speaker, isGreeting)

	req := llm.Request{
		Frame:     s.World.Frame,
		Subsystem: "DialogueSubsystem",
		Operation: operationName(isGreeting),
		Prompt:    prompt,
		Fallback:  func() string { return greetingFallback(speaker, isGreeting) },
	}
	res, _ := s.LLM.Generate(ctx, req)
	return res.Text
}

func operationName(isGreeting bool) string {
	if isGreeting {
		return "greeting"
	}
	return "turn"
}

// buildPrompt assembles the context listed in spec §4.7: identity,
// personality, mood/concern, topic-filtered knowledge, recent history,
// relationship level, relevant quests, rumors, time-of-day and weather.
func (s *Subsystem) buildPrompt(conv *entity.Conversation, speaker *entity.Character, isGreeting bool) string {
	var b strings.Builder
	if speaker == nil {
		return "Continue the conversation naturally."
	}
	fmt.Fprintf(&b, "You are %s, mood=%s, concern=%s.\n", speaker.Name, speaker.Mood, speaker.Concern)
	fmt.Fprintf(&b, "Personality: openness=%d agreeableness=%d courage=%d\n",
		speaker.Personality.Openness, speaker.Personality.Agreeableness, speaker.Personality.Courage)

	if topic := lastTopic(conv); topic != "" && speaker.IsSpecialistFor(topic) {
		fmt.Fprintf(&b, "You are a specialist on %q.\n", topic)
	}

	for _, t := range conv.RecentTurns(HistoryWindow) {
		fmt.Fprintf(&b, "%s: %s\n", t.SpeakerID, t.Text)
	}

	for _, other := range conv.Participants {
		if other == speaker.ID {
			continue
		}
		fmt.Fprintf(&b, "Relationship to %s: %d\n", other, speaker.Relationships[other])
	}

	for _, q := range s.World.ActiveQuestsInvolving(speaker.ID) {
		fmt.Fprintf(&b, "Relevant quest: %s (%s)\n", q.Title, q.Guidance.Hints)
	}

	for _, r := range speaker.Knowledge.Rumors {
		fmt.Fprintf(&b, "Rumor you know: %s\n", r)
	}

	if s.World.Clock != nil {
		fmt.Fprintf(&b, "Time: %s, %s weather.\n", s.World.Clock.TimeOfDay(), s.World.Clock.Weather)
	}

	if isGreeting {
		b.WriteString("Greet the other speaker in character.\n")
	} else {
		b.WriteString("Respond in character, one or two sentences.\n")
	}
	return b.String()
}

func lastTopic(conv *entity.Conversation) string {
	if len(conv.TopicHints) == 0 {
		return ""
	}
	return conv.TopicHints[len(conv.TopicHints)-1]
}

// greetingFallback sources a canned line by (mood, isGreeting) (spec §4.7
// "Failure semantics"). The speaker's role does not affect the line.
func greetingFallback(speaker *entity.Character, isGreeting bool) string {
	if speaker == nil {
		return "..."
	}
	if isGreeting {
		switch speaker.Mood {
		case "hostile":
			return "What do you want."
		case "cheerful":
			return "Well met, traveler!"
		default:
			return "Hello there."
		}
	}
	switch speaker.Mood {
	case "hostile":
		return "I've nothing more to say to you."
	case "cheerful":
		return "Good to keep talking with you!"
	default:
		return "I see."
	}
}
