package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/cmorrow/quarry/internal/search"
	"github.com/cmorrow/quarry/internal/store"
)

// RunSearch loads the persisted index artifacts and runs the interactive
// query loop until EOF, interrupt, or "exit".
//
// A missing id map or a missing shard directory is fatal: there is nothing
// to search. A missing important-word list only disables the boost.
func RunSearch(cfg Config) error {
	st := store.New(cfg.IndexDir)

	idToURL, err := st.ReadIDToURL()
	if err != nil {
		return fmt.Errorf("loading %s (run `quarry build` first): %w", store.IDToURLName, err)
	}
	if !st.HasShards() {
		return fmt.Errorf("no index shards under %s (run `quarry build` first)", st.IndexDir())
	}
	important, err := st.ReadImportantWords()
	if err != nil {
		return fmt.Errorf("loading %s: %w", store.ImportantWordsName, err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	cache, err := search.NewCache(st, cfg.CacheCapacity)
	if err != nil {
		return err
	}
	eval := search.NewEvaluator(cache, idToURL, important)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     ".quarry_history.tmp",
		InterruptPrompt: "^C\n",
		EOFPrompt:       "exit\n",
		HistoryLimit:    100,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Enter your search query (press Ctrl+C or type 'exit' to quit):")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue // allow clearing the line with Ctrl+C
		}
		if err == io.EOF || strings.TrimSpace(line) == "exit" {
			return nil
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		start := time.Now()
		urls, err := eval.Search(query)
		if err != nil {
			return fmt.Errorf("query %q failed: %w", query, err)
		}
		elapsed := time.Since(start)

		if len(urls) == 0 {
			fmt.Printf("No matches found. (%.2f seconds)\n", elapsed.Seconds())
			continue
		}

		shown := min(len(urls), maxResults)
		fmt.Printf("%d results, showing top %d (%.2f seconds):\n", len(urls), shown, elapsed.Seconds())
		for i := 0; i < shown; i++ {
			fmt.Printf("%d. %s\n", i+1, urls[i])
		}
	}
}
