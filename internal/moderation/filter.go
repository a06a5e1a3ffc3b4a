// Package moderation decides whether user content may be shown to a viewer
// who has the bad-words filter turned on.
package moderation

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/alphabot-ai/ranked/internal/store"
)

var defaultWords = []string{
	"fuck", "shit", "bitch", "ass", "damn", "bastard", "dick", "piss", "cunt",
	"prick", "wanker", "slut", "whore", "fag", "faggot", "nigga", "niger",
	"hoe", "cock", "pussy",
}

// Filter matches whole words even when their letters are separated by
// punctuation or underscores ("s.h.i.t", "s_h_i_t").
type Filter struct {
	mu    sync.RWMutex
	base  []*regexp.Regexp
	extra []*regexp.Regexp
	log   zerolog.Logger
}

func NewFilter(log zerolog.Logger) *Filter {
	return &Filter{
		base: compileWords(defaultWords),
		log:  log.With().Str("component", "moderation").Logger(),
	}
}

// Allowed reports whether text may be shown. Users with badWordsMode on see
// everything.
func (f *Filter) Allowed(text string, badWordsMode bool) bool {
	if badWordsMode {
		return true
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, re := range f.base {
		if re.MatchString(text) {
			return false
		}
	}
	for _, re := range f.extra {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// RankingAllowed checks the title and every item.
func (f *Filter) RankingAllowed(r *store.Ranking, badWordsMode bool) bool {
	if !f.Allowed(r.Title, badWordsMode) {
		return false
	}
	for _, item := range r.Items {
		if !f.Allowed(item.Content, badWordsMode) {
			return false
		}
	}
	return true
}

// LoadFile replaces the extra word list with the words in path, one per
// line. Blank lines and lines starting with # are ignored.
func (f *Filter) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	extra := compileWords(words)
	f.mu.Lock()
	f.extra = extra
	f.mu.Unlock()

	f.log.Info().Str("path", path).Int("words", len(extra)).Msg("loaded extra filter words")
	return nil
}

// Watch loads path and reloads it whenever it changes, until ctx is done.
func (f *Filter) Watch(ctx context.Context, path string) error {
	if err := f.LoadFile(path); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := f.LoadFile(path); err != nil {
					f.log.Warn().Err(err).Str("path", path).Msg("reload filter words")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.log.Warn().Err(err).Msg("filter word watcher")
			}
		}
	}()

	return nil
}

func compileWords(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		letters := make([]string, 0, len(word))
		for _, r := range strings.ToLower(word) {
			letters = append(letters, regexp.QuoteMeta(string(r)))
		}
		if len(letters) == 0 {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+strings.Join(letters, `[\W_]*`)+`\b`))
	}
	return patterns
}
