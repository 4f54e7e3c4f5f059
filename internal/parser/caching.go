package parser

import (
	"context"
	"strings"

	"github.com/dgallion1/recgest/internal/logger"
)

// LayoutCache stores converted markdown per guideline and content hash.
type LayoutCache interface {
	GetLayoutMarkdown(ctx context.Context, guidelineID, sha string) (string, bool, error)
	SaveLayoutMarkdown(ctx context.Context, guidelineID, sha, markdown string) error
}

// CachingConverter reuses previously converted markdown so a document is
// sent to the conversion service at most once per content hash.
type CachingConverter struct {
	next  Converter
	cache LayoutCache
	log   *logger.Logger
}

func NewCachingConverter(next Converter, cache LayoutCache, log *logger.Logger) *CachingConverter {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachingConverter{next: next, cache: cache, log: log.With("component", "layout_cache")}
}

// Convert returns cached markdown for (guidelineID, sha) or converts data
// and caches the non-empty result. Cache errors are logged, never returned.
func (c *CachingConverter) Convert(ctx context.Context, guidelineID, sha string, data []byte, filename string) (string, error) {
	if md, ok, err := c.cache.GetLayoutMarkdown(ctx, guidelineID, sha); err != nil {
		c.log.Warn("layout cache read failed", "guideline_id", guidelineID, "error", err)
	} else if ok {
		c.log.Debug("layout cache hit", "guideline_id", guidelineID)
		return md, nil
	}

	md, err := c.next.ToMarkdown(ctx, data, filename)
	if err != nil {
		return "", err
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	if err := c.cache.SaveLayoutMarkdown(ctx, guidelineID, sha, md); err != nil {
		c.log.Warn("layout cache write failed", "guideline_id", guidelineID, "error", err)
	}
	return md, nil
}
