package tasks

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/shared"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
)

// Query identifies a song to import. Artist is optional.
type Query struct {
	Title  string
	Artist string
}

func (q Query) String() string {
	if q.Artist == "" {
		return q.Title
	}
	return q.Title + " - " + q.Artist
}

// ImportStatus is the outcome for one [Query].
type ImportStatus int

const (
	StatusAdded ImportStatus = iota
	StatusSkipped
	StatusNotFound
	StatusFailed
)

// ImportItem is the outcome of one query.
type ImportItem struct {
	Query  Query
	Track  models.Track
	Status ImportStatus
	Err    error
}

// ImportResult summarizes an import. Items keep the order of the queries.
type ImportResult struct {
	Items    []ImportItem
	Added    int
	Skipped  int
	NotFound int
	Failed   int
}

// Searcher finds tracks by title or artist.
type Searcher interface {
	Search(ctx context.Context, query string) []models.Track
}

// Favorites is the list the import adds to.
type Favorites interface {
	Contains(track models.Track) bool
	Add(ctx context.Context, track models.Track) error
}

// ImportOpts contains configuration for an import.
type ImportOpts struct {
	NumWorkers int // Concurrent searches (default: 4, at most 10)
}

// Importer adds many songs to favorites.
type Importer struct {
	search    Searcher
	favorites Favorites
	logger    *log.Logger
}

// NewImporter creates an importer. A nil logger discards.
func NewImporter(search Searcher, favorites Favorites, logger *log.Logger) *Importer {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Importer{search: search, favorites: favorites, logger: logger}
}

type searchJob struct {
	index int
	query Query
}

type searchResult struct {
	index int
	track models.Track
	found bool
}

// Import searches every query concurrently, then adds the matches in query order.
//
// Cancelling ctx stops both phases; the partial result is returned along with ctx's error.
func (i *Importer) Import(ctx context.Context, prog chan<- ProgressUpdate, queries []Query, opts ImportOpts) (*ImportResult, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: nothing to import", shared.ErrMissingArgument)
	}
	workers := opts.NumWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}
	workers = min(workers, maxWorkers, len(queries))

	jobs := make(chan searchJob, len(queries))
	results := make(chan searchResult, len(queries))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go i.searchWorker(ctx, &wg, jobs, results)
	}

	for idx, q := range queries {
		jobs <- searchJob{index: idx, query: q}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	matches := make([]searchResult, len(queries))
	searched := 0
	for res := range results {
		searched++
		matches[res.index] = res
		sendProgress(prog, searchUpdate(searched, len(queries), queries[res.index]))
	}

	result := &ImportResult{Items: make([]ImportItem, 0, len(queries))}
	for idx, q := range queries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := i.add(ctx, q, matches[idx])
		result.Items = append(result.Items, item)
		switch item.Status {
		case StatusAdded:
			result.Added++
		case StatusSkipped:
			result.Skipped++
		case StatusNotFound:
			result.NotFound++
		default:
			result.Failed++
		}
		sendProgress(prog, itemUpdate(idx+1, len(queries), item))
	}

	i.logger.Info("import finished", "added", result.Added, "skipped", result.Skipped, "not_found", result.NotFound, "failed", result.Failed)
	sendProgress(prog, finishedUpdate(result))
	return result, nil
}

// searchWorker is a worker goroutine that resolves queries from the jobs channel.
func (i *Importer) searchWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan searchJob, results chan<- searchResult) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			results <- searchResult{index: job.index}
			continue
		}
		track, found := Match(i.search.Search(ctx, job.query.Title), job.query)
		results <- searchResult{index: job.index, track: track, found: found}
	}
}

func (i *Importer) add(ctx context.Context, q Query, match searchResult) ImportItem {
	item := ImportItem{Query: q, Track: match.track}
	switch {
	case !match.found:
		item.Status = StatusNotFound
	case i.favorites.Contains(match.track):
		item.Status = StatusSkipped
	default:
		err := i.favorites.Add(ctx, match.track)
		switch {
		case err == nil:
			item.Status = StatusAdded
		case errors.Is(err, shared.ErrAlreadyFavorited):
			item.Status = StatusSkipped
		default:
			item.Status = StatusFailed
			item.Err = err
			i.logger.Warn("failed to add favorite", "query", q.String(), "error", err)
		}
	}
	return item
}

// Match picks the first track with q's artist, compared case-insensitively. Without an artist the first
// track whose title matches wins, falling back to the first track.
func Match(tracks []models.Track, q Query) (models.Track, bool) {
	if len(tracks) == 0 {
		return models.Track{}, false
	}
	if q.Artist == "" {
		for _, t := range tracks {
			if strings.EqualFold(t.Title, q.Title) {
				return t, true
			}
		}
		return tracks[0], true
	}
	for _, t := range tracks {
		if strings.EqualFold(t.Artist, q.Artist) {
			return t, true
		}
	}
	return models.Track{}, false
}

// ReadQueries parses an import file.
//
// CSV input is recognized by a header row with Title and Artist columns, as written by the CSV export.
// Otherwise each non-empty line not starting with '#' is "Title - Artist" or just a title.
func ReadQueries(r io.Reader) ([]Query, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	content := string(data)

	first, _, _ := strings.Cut(content, "\n")
	if strings.Contains(first, "Title") && strings.Contains(first, ",") {
		return readCSV(content)
	}

	var queries []Query
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		title, artist, _ := strings.Cut(line, " - ")
		queries = append(queries, Query{Title: strings.TrimSpace(title), Artist: strings.TrimSpace(artist)})
	}
	return queries, nil
}

func readCSV(content string) ([]Query, error) {
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid CSV: %v", shared.ErrInvalidArgument, err)
	}

	titleCol, artistCol := -1, -1
	for i, h := range records[0] {
		switch strings.TrimSpace(h) {
		case "Title":
			titleCol = i
		case "Artist":
			artistCol = i
		}
	}
	if titleCol < 0 {
		return nil, fmt.Errorf("%w: CSV has no Title column", shared.ErrInvalidArgument)
	}

	var queries []Query
	for _, rec := range records[1:] {
		if titleCol >= len(rec) || strings.TrimSpace(rec[titleCol]) == "" {
			continue
		}
		q := Query{Title: strings.TrimSpace(rec[titleCol])}
		if artistCol >= 0 && artistCol < len(rec) {
			q.Artist = strings.TrimSpace(rec[artistCol])
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
