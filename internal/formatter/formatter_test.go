package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/shared"
	th "github.com/desertthunder/imusic/internal/testing"
)

func testExport() *Export {
	return &Export{
		Name:  "favorite",
		Owner: "alice",
		Tracks: []models.Track{
			{
				ID:              "fav_0",
				Title:           "Song One",
				Artist:          "Artist One",
				Album:           "Album One",
				DurationSeconds: 180,
				MediaURL:        "https://cdn.example.com/one.mp3",
			},
			{
				ID:              "fav_1",
				Title:           "Song, Two",
				Artist:          "Artist Two",
				DurationSeconds: 3725,
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Artist,Album,Duration,Seconds,URL\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "fav_0,Song One,Artist One,Album One,3:00,180,https://cdn.example.com/one.mp3") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, `"Song, Two"`) {
			t.Errorf("CSV should quote fields with commas, got: %s", output)
		}
		if !strings.Contains(output, "1:02:05") {
			t.Errorf("CSV should format long durations, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testExport(), "cover.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# favorite",
			"![Cover](cover.jpg)",
			"**Owner**: alice",
			"**Tracks**: 2",
			"**Total time**: 1:05:05",
			"1. Artist One - Song One (Album One) [3:00]",
			"2. Artist Two - Song, Two [1:02:05]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown without cover", func(t *testing.T) {
		data, _ := ExportToMarkdown(testExport(), "")
		if strings.Contains(string(data), "![Cover]") {
			t.Error("expected no cover line")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "List: favorite") || !strings.Contains(output, "Tracks: 2 (1:05:05)") {
			t.Errorf("text header wrong, got:\n%s", output)
		}
		if !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("text missing track, got:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded Export
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Name != "favorite" || len(decoded.Tracks) != 2 || decoded.Tracks[1].DurationSeconds != 3725 {
			t.Errorf("unexpected decoded export %+v", decoded)
		}
	})

	t.Run("empty export", func(t *testing.T) {
		empty := &Export{Name: "favorite"}
		data, err := ExportToText(empty)
		if err != nil || !strings.Contains(string(data), "Tracks: 0 (0:00)") {
			t.Errorf("unexpected empty export %q %v", data, err)
		}
	})
}

func TestRender(t *testing.T) {
	for _, format := range []string{"csv", "markdown", "md", "text", "txt", "json", "CSV"} {
		t.Run(format, func(t *testing.T) {
			if _, err := Render(testExport(), format); err != nil {
				t.Errorf("Render(%s) failed: %v", format, err)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		if _, err := Render(testExport(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv")
		got, err := WriteExport(testExport(), FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "Song One") {
			t.Error("file missing content")
		}
	})

	t.Run("default path", func(t *testing.T) {
		t.Chdir(dir)
		got, err := WriteExport(testExport(), FormatMarkdown, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != "favorite.md" {
			t.Errorf("expected favorite.md, got %s", got)
		}
	})
}

func TestWriteMarkdownExport(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads cover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		export := testExport()
		export.Tracks[0].CoverURL = server.URL + "/cover.jpg"
		dir := filepath.Join(t.TempDir(), "favorites")

		result, err := WriteMarkdownExport(ctx, export, dir, server.Client(), nil)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if result.CoverImage == "" || len(result.Files) != 2 {
			t.Errorf("expected cover and README, got %+v", result)
		}
		if th.MustReadFile(t, result.CoverImage) != "jpeg-bytes" {
			t.Error("cover content mismatch")
		}
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
			t.Error("README should reference the cover")
		}
	})

	t.Run("cover failure warns and continues", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		export := testExport()
		export.Tracks[0].CoverURL = server.URL + "/missing.jpg"
		var warned error

		result, err := WriteMarkdownExport(ctx, export, t.TempDir(), server.Client(), func(err error) { warned = err })
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if warned == nil {
			t.Error("expected a warning")
		}
		if result.CoverImage != "" || len(result.Files) != 1 {
			t.Errorf("expected README only, got %+v", result)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	if _, err := DownloadImage(context.Background(), nil, ""); err == nil {
		t.Error("expected error for empty URL")
	}
}
