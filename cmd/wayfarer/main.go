// Command wayfarer is the CLI / library entry point (spec component 17,
// "Config/Bootstrap"): it wires every subsystem in dependency order, runs a
// world-generation handshake, and hands control to the Autonomous Loop, or
// inspects/continues a saved replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"wayfarer/internal/action"
	"wayfarer/internal/combat"
	"wayfarer/internal/config"
	"wayfarer/internal/decider"
	"wayfarer/internal/dialogue"
	"wayfarer/internal/entity"
	"wayfarer/internal/eventbus"
	"wayfarer/internal/fallback"
	"wayfarer/internal/game"
	"wayfarer/internal/llm"
	"wayfarer/internal/llm/providers"
	"wayfarer/internal/loop"
	"wayfarer/internal/observability"
	"wayfarer/internal/publisher"
	"wayfarer/internal/quest"
	"wayfarer/internal/replay"
	"wayfarer/internal/rng"
	"wayfarer/internal/worldgen"
)

// Exit codes per spec §6 "CLI surface".
const (
	exitOK             = 0
	exitGenericFailure = 1
	exitBadArgs        = 2
	exitLLMUnavailable = 3
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitBadArgs)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "replay":
		err = replayCmd(os.Args[2:])
	default:
		usage()
		os.Exit(exitBadArgs)
	}

	if err != nil {
		log.Error().Err(err).Msg("wayfarer")
		if err == errLLMUnavailable {
			os.Exit(exitLLMUnavailable)
		}
		os.Exit(exitGenericFailure)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: wayfarer run [flags] | wayfarer replay view|play|continue <file> [flags]")
}

var errLLMUnavailable = fmt.Errorf("llm endpoint unavailable at startup")

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "master rng seed (0 = use config default)")
	theme := fs.String("theme", "", "world theme tag")
	player := fs.String("player", "", "protagonist display name")
	model := fs.String("model", "", "model name override")
	frames := fs.Int("frames", 0, "max frames (0 = unbounded)")
	fps := fs.Float64("fps", 0, "frame rate in Hz (0 = config default)")
	out := fs.String("out", "", "replay output path (default ./replays/<sessionId>.replay.gz)")
	requireLLM := fs.Bool("require-llm", false, "fail at startup if the LLM endpoint is unreachable")
	configPath := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	if *player != "" {
		cfg.PlayerName = *player
	}
	if *model != "" {
		cfg.OpenAIDirect.Model = *model
		cfg.LLM.Anthropic.Model = *model
		cfg.LLM.Google.Model = *model
	}
	if *frames != 0 {
		cfg.MaxFrames = *frames
	}
	if *fps != 0 {
		cfg.FrameRate = *fps
	}
	if *requireLLM {
		cfg.RequireLLM = true
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)
	shutdown, err := observability.InitOTel(context.Background(), cfg.Telemetry)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without tracing")
	} else {
		defer func() { _ = shutdown(context.Background()) }()
	}

	sess, lp, logger, err := bootstrap(cfg)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(cfg.ReplayDir, sess.World.SessionID+".replay.gz")
	}

	ctx := context.Background()
	lp.Run(ctx)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	if err := logger.Save(outPath); err != nil {
		return fmt.Errorf("save replay: %w", err)
	}
	log.Info().Str("path", outPath).Int("frames", sess.World.Frame).Msg("session ended")
	return nil
}

// bootstrap constructs every subsystem in the dependency order of spec §2,
// performs the world-generation handshake, and returns a ready-to-run Loop.
func bootstrap(cfg config.Config) (*game.Session, *loop.Loop, *replay.Logger, error) {
	provider, err := providers.Build(cfg, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build llm provider: %w", err)
	}

	sessionID := uuid.NewString()
	protagonist := newProtagonist(cfg.PlayerName)

	handshakeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, gctx := errgroup.WithContext(handshakeCtx)

	if cfg.RequireLLM {
		g.Go(func() error {
			_, probeErr := provider.Generate(gctx, "ping", llm.Options{})
			if probeErr != nil {
				return errLLMUnavailable
			}
			return nil
		})
	}

	var startingWorld *worldgen.Record
	g.Go(func() error {
		rec, genErr := worldgen.StaticCollaborator{}.GenerateWorld(gctx, worldgen.Request{
			Seed:       cfg.Seed,
			Theme:      cfg.Theme,
			PlayerName: protagonist.Name,
		})
		if genErr != nil {
			return fmt.Errorf("world generation handshake: %w", genErr)
		}
		startingWorld = rec
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	source := rng.New(cfg.Seed)
	bus := eventbus.New()
	pub := publisher.New()
	fb := fallback.New(bus)
	logger := replay.New(sessionID, cfg.OpenAIDirect.Model, cfg.Theme, cfg.Seed)
	client := llm.NewClient(provider, fb, logger, nil, cfg.Seed)

	world := entity.NewWorld(sessionID, cfg.Seed)

	dlg := dialogue.New(world, bus, client, nil)
	qst := quest.New(world, bus, client, quest.DefaultProposalBuilder, questIDGenerator(world))
	dlg.Quest = qst
	cbt := combat.New(world, bus, client, source.Stream(rng.StreamCombat))
	act := action.New(world, bus, client, dlg, cbt, source)

	sess := game.NewSession(world, bus, pub, fb, client, source, dlg, qst, cbt, act)
	sess.Replay = logger
	sess.Checkpoint = logger

	if err := worldgen.Populate(world, protagonist, startingWorld); err != nil {
		return nil, nil, nil, fmt.Errorf("populate world: %w", err)
	}

	sess.Initialize()
	logger.SetInitialState(sess.GetGameState())

	dec := decider.New(world, client)
	lp := loop.New(sess, dec, cfg.FrameRate, cfg.MaxFrames)
	return sess, lp, logger, nil
}

func questIDGenerator(world *entity.World) func() string {
	return func() string {
		return "quest-" + strconv.Itoa(len(world.ActiveQuests)+len(world.CompletedQuests)+1)
	}
}

func newProtagonist(name string) *entity.Character {
	if name == "" {
		name = "Wayfarer"
	}
	return &entity.Character{
		ID:   "protagonist",
		Name: name,
		Role: entity.RoleProtagonist,
		Stats: entity.Stats{
			Level: 1, HP: 100, MaxHP: 100, Stamina: 50, MaxStamina: 50, Magic: 20, MaxMagic: 20,
			Attack: 10, Defense: 5,
			Attributes: entity.Attributes{Strength: 10, Dexterity: 10, Constitution: 10, Intelligence: 10, Wisdom: 10, Charisma: 10},
		},
		Inventory:     entity.Inventory{Capacity: 50, Gold: 20},
		Equipment:     map[entity.EquipSlot]*entity.Item{},
		Relationships: map[string]int{},
	}
}

func replayCmd(args []string) error {
	if len(args) < 1 {
		usage()
		return fmt.Errorf("replay: missing subcommand")
	}
	switch args[0] {
	case "view":
		return replayView(args[1:])
	case "play":
		return replayPlay(args[1:])
	case "continue":
		return replayContinue(args[1:])
	default:
		usage()
		return fmt.Errorf("replay: unknown subcommand %q", args[0])
	}
}

func replayView(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("replay view: missing <file>")
	}
	doc, err := replay.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("session replay %s\n", args[0])
	fmt.Printf("  version: %s\n", doc.Header.Version)
	fmt.Printf("  seed: %d theme: %s model: %s\n", doc.Header.GameSeed, doc.Header.Theme, doc.Header.Model)
	fmt.Printf("  frames: %d events: %d llmCalls: %d checkpoints: %d\n",
		doc.Header.FrameCount, doc.Header.EventCount, doc.Header.LLMCallCount, doc.Header.CheckpointCount)
	return nil
}

func replayPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("replay play: missing <file>")
	}
	speed := 1.0
	if fs.NArg() >= 2 {
		v, err := strconv.ParseFloat(fs.Arg(1), 64)
		if err != nil {
			return fmt.Errorf("replay play: invalid speed %q: %w", fs.Arg(1), err)
		}
		speed = v
	}
	doc, err := replay.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	delay := time.Second
	if speed > 0 {
		delay = time.Duration(float64(time.Second) / speed)
	}
	for _, ev := range doc.Events {
		fmt.Printf("[frame %d] %s %v\n", ev.Frame, ev.Type, ev.Data)
		time.Sleep(delay / time.Duration(max(1, len(doc.Events))))
	}
	return nil
}

func replayContinue(args []string) error {
	fs := flag.NewFlagSet("continue", flag.ContinueOnError)
	out := fs.String("out", "", "output replay path for the continued session")
	newSeed := fs.Int64("seed", 0, "new master seed (0 = derive from clock)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("replay continue: missing <file>")
	}
	if *out == "" {
		return fmt.Errorf("replay continue: --out is required")
	}

	seed := *newSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cont, err := replay.Resume(fs.Arg(0), seed)
	if err != nil {
		return err
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	provider, err := providers.Build(cfg, nil)
	if err != nil {
		return err
	}

	bus := eventbus.New()
	pub := publisher.New()
	fb := fallback.New(bus)
	logger := replay.NewContinuationLogger(cont, cont.FromFile.Header.Model)
	client := llm.NewClient(provider, fb, logger, nil, seed)
	source := rng.New(seed)

	dlg := dialogue.New(cont.World, bus, client, nil)
	qst := quest.New(cont.World, bus, client, quest.DefaultProposalBuilder, questIDGenerator(cont.World))
	dlg.Quest = qst
	cbt := combat.New(cont.World, bus, client, source.Stream(rng.StreamCombat))
	act := action.New(cont.World, bus, client, dlg, cbt, source)

	sess := game.NewSession(cont.World, bus, pub, fb, client, source, dlg, qst, cbt, act)
	sess.Replay = logger
	sess.Checkpoint = logger
	sess.Initialize()

	dec := decider.New(cont.World, client)
	lp := loop.New(sess, dec, loop.DefaultFrameRate, 0)
	lp.Run(context.Background())

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	return logger.Save(*out)
}
