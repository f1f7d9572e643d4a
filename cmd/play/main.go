// Command play is the terminal player: it loads a story document, runs the
// playback engine in-process, and renders scenes with a typewriter text
// reveal. Act checkpoints are written to a local SQLite database keyed by
// story file, so finishing an act and relaunching the next one carries the
// player stats forward.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/novel-engine/internal/config"
	"github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/internal/storage"
	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/reveal"
	"github.com/jwebster45206/novel-engine/pkg/story"
	"github.com/jwebster45206/novel-engine/pkg/textfilter"
)

func main() {
	storyPath := flag.String("story", "", "path to a story document (json)")
	speedFlag := flag.String("speed", "", "text reveal speed: slow, medium, or fast (overrides TEXT_SPEED)")
	ratingFlag := flag.String("rating", string(textfilter.DefaultRating), "content rating: family, teen, or mature")
	flag.Parse()

	if *storyPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -story <story.json> [-speed slow|medium|fast] [-rating family|teen|mature]\n", os.Args[0])
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg)

	if err := run(cfg, log, *storyPath, *speedFlag, *ratingFlag); err != nil {
		log.Error("player exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, storyPath, speedFlag, ratingFlag string) error {
	data, err := os.ReadFile(storyPath)
	if err != nil {
		return fmt.Errorf("failed to read story: %w", err)
	}
	graph, err := story.Normalize(data)
	if err != nil {
		return fmt.Errorf("failed to load story: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLitePath, cfg.DataDir, log)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	defer store.Close()

	speed := reveal.ParseSpeed(cfg.TextSpeed)
	if speedFlag != "" {
		speed = reveal.ParseSpeed(speedFlag)
	}

	// The session ID is derived from the story path so act checkpoints
	// survive across player runs of the same story.
	abs, err := filepath.Abs(storyPath)
	if err != nil {
		abs = storyPath
	}
	sessionID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(abs))

	eng := engine.New(graph, sessionID, store, reveal.NewScheduler(speed), nil, log)

	m := newModel(eng, playOptions{
		storyPath: abs,
		rating:    textfilter.ParseRating(ratingFlag),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal error: %w", err)
	}
	return nil
}
