package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/imusic/internal/app"
	"github.com/desertthunder/imusic/internal/formatter"
	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/repositories"
	"github.com/desertthunder/imusic/internal/shared"
	"github.com/desertthunder/imusic/internal/tasks"
)

const (
	titleColumn  = 32
	artistColumn = 24
	pollInterval = 250 * time.Millisecond
)

// Search prints the songs matching the query argument. An empty query lists everything.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	a, err := r.newApp(nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	query := cmd.StringArg("query")
	tracks, _ := a.Search(ctx, query)

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	if len(tracks) == 0 {
		return r.writePlain("No songs found, try another keyword\n")
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q (%d)", query, len(tracks)))
	r.writeTracks(tracks)
	return nil
}

// FavoritesList prints the favorites of the saved session.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.loggedIn(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tracks := a.Favorites.Tracks()
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	if len(tracks) == 0 {
		return r.writePlain("No favorites yet\n")
	}

	r.writePlainHeader(fmt.Sprintf("Favorites (%d songs, %s)", len(tracks), shared.FormatDuration(a.Favorites.TotalSeconds())))
	r.writeTracks(tracks)
	return nil
}

// FavoritesAdd searches for the query and favorites the --index result.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	a, err := r.loggedIn(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	track, err := r.pick(ctx, a, cmd.StringArg("query"), cmd.Int("index"))
	if err != nil {
		return err
	}

	if err := a.Favorites.Add(ctx, track); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s - %s to favorites\n", track.Title, track.Artist)
}

// FavoritesRemove unfavorites the song at the given 1-based position.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	a, err := r.loggedIn(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tracks := a.Favorites.Tracks()
	pos := cmd.IntArg("position")
	if pos < 1 || pos > len(tracks) {
		return fmt.Errorf("%w: position must be between 1 and %d", shared.ErrInvalidArgument, len(tracks))
	}

	track := tracks[pos-1]
	if err := a.Favorites.Remove(ctx, track); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s - %s from favorites\n", track.Title, track.Artist)
}

// FavoritesExport writes the favorites in --format to --output.
func (r *Runner) FavoritesExport(ctx context.Context, cmd *cli.Command) error {
	a, err := r.loggedIn(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	export := &formatter.Export{
		Name:       r.config.API.FavoritesList,
		ExportedAt: time.Now(),
		Tracks:     a.Favorites.Tracks(),
	}
	if id := a.Session.Identity(); id != nil {
		export.Owner = id.Username
	}

	format, output := cmd.String("format"), cmd.String("output")
	if format == formatter.FormatMarkdown || format == "md" {
		result, err := formatter.WriteMarkdownExport(ctx, export, output, r.httpClient, func(err error) {
			r.logger.Warn("failed to download cover", "error", err)
		})
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d songs to %s\n", len(export.Tracks), result.Directory)
	}

	path, err := formatter.WriteExport(export, format, output)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d songs to %s\n", len(export.Tracks), path)
}

// FavoritesImport adds the songs listed in a file, printing progress as each one is resolved.
func (r *Runner) FavoritesImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: file is required", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	queries, err := tasks.ReadQueries(f)
	f.Close()
	if err != nil {
		return err
	}

	a, err := r.loggedIn(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	prog := make(chan tasks.ProgressUpdate, len(queries)*2+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			if u.Phase == tasks.SearchTracks {
				r.logger.Debug(u.Message, "step", u.Step, "total", u.Total)
				continue
			}
			r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
		}
	}()

	importer := tasks.NewImporter(a.Catalog, a.Favorites, shared.WithLogger(r.logger, "component", "import"))
	_, err = importer.Import(ctx, prog, queries, tasks.ImportOpts{NumWorkers: cmd.Int("workers")})
	close(prog)
	<-done
	return err
}

// FavoritesPlay plays the favorites from the top, advancing on each ended track, until interrupted.
func (r *Runner) FavoritesPlay(ctx context.Context, cmd *cli.Command) error {
	a, err := r.loggedIn(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Favorites.Len() == 0 {
		return r.writePlain("No favorites yet\n")
	}
	if err := a.PlayAll(ctx); err != nil {
		return err
	}

	var playing string
	return r.follow(ctx, a, func(st models.PlaybackState) bool {
		if st.Current != nil && st.Current.Key() != playing {
			playing = st.Current.Key()
			r.writePlain("▶ %s - %s\n", st.Current.Title, st.Current.Artist)
		}
		return true
	})
}

// Play searches for the query and plays the --index result to the end.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	a, err := r.newApp(nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	track, err := r.pick(ctx, a, cmd.StringArg("query"), cmd.Int("index"))
	if err != nil {
		return err
	}

	if err := a.Playback.Play(ctx, track); err != nil {
		return err
	}
	r.writePlain("▶ %s - %s\n", track.Title, track.Artist)

	return r.follow(ctx, a, func(st models.PlaybackState) bool {
		return st.IsPlaying && st.Current != nil && st.Current.Key() == track.Key()
	})
}

// History lists or clears the local play history.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}
	history := repositories.NewHistoryRepository(db)

	if cmd.Bool("clear") {
		n, err := history.Clear(ctx)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Cleared %d entries\n", n)
	}

	records, err := history.Recent(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(records, cmd.Bool("pretty"))
	}
	if len(records) == 0 {
		return r.writePlain("Nothing played yet\n")
	}

	r.writePlainHeader("Recently played")
	for _, rec := range records {
		r.writePlain("%s  %s  %s\n",
			rec.PlayedAt.Local().Format(time.DateTime),
			column(rec.Title, titleColumn),
			column(rec.Artist, artistColumn),
		)
	}
	return nil
}

// loggedIn builds an app and restores the saved session, failing with [shared.ErrAuthRequired] without one.
func (r *Runner) loggedIn(ctx context.Context) (*app.App, error) {
	a, err := r.newApp(nil, nil)
	if err != nil {
		return nil, err
	}
	if _, err := r.restore(ctx, a); err != nil {
		a.Close()
		return nil, fmt.Errorf("%w: run 'imusic auth login' first", err)
	}
	return a, nil
}

// pick searches and returns the 1-based index-th result.
func (r *Runner) pick(ctx context.Context, a *app.App, query string, index int) (models.Track, error) {
	tracks, _ := a.Search(ctx, query)
	if len(tracks) == 0 {
		return models.Track{}, fmt.Errorf("%w: no songs match %q", shared.ErrTrackNotFound, query)
	}
	if index < 1 || index > len(tracks) {
		return models.Track{}, fmt.Errorf("%w: index must be between 1 and %d", shared.ErrInvalidArgument, len(tracks))
	}
	return tracks[index-1], nil
}

// follow polls playback until keep returns false or ctx is done, then stops the device.
func (r *Runner) follow(ctx context.Context, a *app.App, keep func(models.PlaybackState) bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	defer a.Playback.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st := a.Playback.State()
			if !keep(st) {
				return nil
			}
			r.logger.Debug("playing", "position", shared.FormatDuration(int(st.PositionSeconds)), "duration", shared.FormatDuration(int(st.DurationSeconds)))
		}
	}
}

func (r *Runner) writeTracks(tracks []models.Track) {
	for i, t := range tracks {
		r.writePlain("%3d. %s  %s  %5s\n", i+1, column(t.Title, titleColumn), column(t.Artist, artistColumn), shared.FormatDuration(t.DurationSeconds))
	}
}

// column pads or truncates s to width terminal cells.
func column(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
