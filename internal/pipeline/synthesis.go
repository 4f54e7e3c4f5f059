package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/logger"
	"github.com/dgallion1/recgest/internal/store"
)

const (
	packedDisplayMax = 12000
	noDisplayLine    = "- (No saved recommendations display.)"
)

// SynthesisStore is the persistence SynthesisService reads from.
type SynthesisStore interface {
	GetGuideline(ctx context.Context, id string) (store.Guideline, error)
	GetRecommendationsDisplay(ctx context.Context, id string) (string, error)
}

// SynthesisService writes a narrative synthesis across several guidelines'
// saved recommendation displays.
type SynthesisService struct {
	llm   extract.Completer
	store SynthesisStore
	log   *logger.Logger
}

func NewSynthesisService(llm extract.Completer, st SynthesisStore, log *logger.Logger) *SynthesisService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SynthesisService{llm: llm, store: st, log: log.With("component", "synthesis")}
}

// Generate packs the guidelines and asks for a summary or an answer to
// question. With nothing to pack it returns "" without calling the model.
// Unknown guideline ids are skipped.
func (s *SynthesisService) Generate(ctx context.Context, ids []string, mode extract.SynthesisMode, question string) (string, error) {
	var blocks []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		block, err := s.pack(ctx, id, len(blocks)+1)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Debug("skipping unknown guideline", "guideline_id", id)
			continue
		}
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	if len(blocks) == 0 {
		return "", nil
	}

	out, err := s.llm.Complete(ctx, extract.SynthesisRequest(mode, question, strings.Join(blocks, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (s *SynthesisService) pack(ctx context.Context, id string, n int) (string, error) {
	g, err := s.store.GetGuideline(ctx, id)
	if err != nil {
		return "", err
	}
	title := firstNonBlank(g.Name, g.Filename, "Guideline "+id)
	header := fmt.Sprintf("GUIDELINE %d: %s", n, title)
	var bits []string
	for _, b := range []string{g.PubYear, g.Specialty} {
		if b = strings.TrimSpace(b); b != "" {
			bits = append(bits, b)
		}
	}
	if len(bits) > 0 {
		header += " (" + strings.Join(bits, " • ") + ")"
	}

	disp, err := s.store.GetRecommendationsDisplay(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load display %s: %w", id, err)
	}
	disp = strings.TrimSpace(disp)
	if disp == "" {
		return header + "\n" + noDisplayLine, nil
	}
	if r := []rune(disp); len(r) > packedDisplayMax {
		disp = string(r[:packedDisplayMax]) + "…"
	}
	return header + "\n\n" + disp, nil
}
