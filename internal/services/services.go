package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/imusic/internal/shared"
)

// Endpoint paths relative to the base URL.
const (
	pathLogin        = "/api/user/login/password"
	pathRegister     = "/api/user/register"
	pathCertify      = "/api/user/certificate/codeforces/"
	pathCreateList   = "/api/user/songLists/add"
	pathSearchAll    = "/api/song/search/all"
	pathSearchInList = "/api/song/search/insonglist"
	pathAddToList    = "/api/song/add/tosonglist"
	pathDeleteInList = "/api/song/delete/fromsonglist"
)

// Envelope is the response shape shared by every endpoint.
//
// Message is either a plain string, an object carrying "error", or a payload such as {"songs": [...]}.
type Envelope struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message,omitempty"`
}

// ErrorText extracts a human-readable server message, or "" when none is present.
func (e Envelope) ErrorText() string {
	if len(e.Message) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Message, &obj); err == nil {
		return obj.Error
	}
	return ""
}

// Songs decodes message.songs. ok is false when the payload carries no song array.
func (e Envelope) Songs() (songs []Song, ok bool) {
	var payload struct {
		Songs *[]Song `json:"songs"`
	}
	if len(e.Message) == 0 || json.Unmarshal(e.Message, &payload) != nil || payload.Songs == nil {
		return nil, false
	}
	return *payload.Songs, true
}

// Song is a raw catalog record as the backend returns it.
type Song struct {
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	AlbumArtist   string `json:"albumArtist"`
	Album         string `json:"album"`
	Duration      string `json:"duration"`
	CoverFilePath string `json:"coverFilePath"`
	FilePath      string `json:"filePath"`
}

// DisplayArtist prefers the album artist, as the backend keys list membership on it.
func (s Song) DisplayArtist() string {
	if s.AlbumArtist != "" {
		return s.AlbumArtist
	}
	return s.Artist
}

// SongRef identifies a song inside a song list.
type SongRef struct {
	Title       string `json:"title"`
	AlbumArtist string `json:"albumArtist"`
	Album       string `json:"album"`
	ListName    string `json:"listName"`
}

// APIError is a success=false answer from the backend.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s (status %d)", shared.ErrApplication, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %s", shared.ErrApplication, e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error {
	return shared.ErrApplication
}

// ServerMessage returns the server-provided message of err when err is an [*APIError].
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IMusicService exposes the IMusic endpoints.
type IMusicService struct {
	api    *APIService
	logger *log.Logger
}

// NewIMusicService wraps api. The logger defaults to a discarding one.
func NewIMusicService(api *APIService, logger *log.Logger) *IMusicService {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &IMusicService{api: api, logger: logger}
}

// API returns the underlying raw transport.
func (s *IMusicService) API() *APIService {
	return s.api
}

// BaseURL returns the backend endpoint.
func (s *IMusicService) BaseURL() string {
	return s.api.BaseURL()
}

// call sends the request and decodes the envelope. A success=false envelope becomes an [*APIError].
func (s *IMusicService) call(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var (
		resp *APIResponse
		err  error
	)
	if method == http.MethodGet {
		resp, err = s.api.Get(ctx, path)
	} else {
		resp, err = s.api.PostJSON(ctx, path, body)
	}
	if err != nil {
		s.logger.Debug("request failed", "path", path, "error", err)
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: undecodable response (status %d): %v", shared.ErrTransport, path, resp.StatusCode, err)
	}

	if !env.Success {
		apiErr := &APIError{Endpoint: path, StatusCode: resp.StatusCode, Message: env.ErrorText()}
		s.logger.Debug("request rejected", "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return &env, apiErr
	}
	return &env, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates with username and password. The session cookie lands in the client's jar.
func (s *IMusicService) Login(ctx context.Context, username, password string) error {
	_, err := s.call(ctx, http.MethodPost, pathLogin, credentials{Username: username, Password: password})
	return err
}

// Register creates an account. The backend requires a prior Codeforces certification in the same cookie session.
func (s *IMusicService) Register(ctx context.Context, username, password string) error {
	_, err := s.call(ctx, http.MethodPost, pathRegister, credentials{Username: username, Password: password})
	return err
}

// CertifyCodeforces exchanges a Codeforces authorization code.
func (s *IMusicService) CertifyCodeforces(ctx context.Context, code string) error {
	_, err := s.call(ctx, http.MethodGet, pathCertify+"?code="+url.QueryEscape(code), nil)
	return err
}

// CreateSongList creates a named song list for the logged-in user.
func (s *IMusicService) CreateSongList(ctx context.Context, name string) error {
	_, err := s.call(ctx, http.MethodPost, pathCreateList, map[string]string{"listName": name})
	return err
}

// SearchSongs searches the whole catalog. Title and album artist both carry the query.
//
// A successful envelope without a song array yields an empty slice.
func (s *IMusicService) SearchSongs(ctx context.Context, query string) ([]Song, error) {
	env, err := s.call(ctx, http.MethodPost, pathSearchAll, map[string]string{"title": query, "albumArtist": query})
	if err != nil {
		return nil, err
	}
	songs, _ := env.Songs()
	return songs, nil
}

// ListSongList returns the songs of the named list.
func (s *IMusicService) ListSongList(ctx context.Context, listName string) ([]Song, error) {
	env, err := s.call(ctx, http.MethodPost, pathSearchInList, map[string]string{"listName": listName})
	if err != nil {
		return nil, err
	}
	songs, _ := env.Songs()
	return songs, nil
}

// AddToSongList appends a song to a list.
func (s *IMusicService) AddToSongList(ctx context.Context, ref SongRef) error {
	_, err := s.call(ctx, http.MethodPost, pathAddToList, ref)
	return err
}

// DeleteFromSongList removes a song from a list.
func (s *IMusicService) DeleteFromSongList(ctx context.Context, ref SongRef) error {
	_, err := s.call(ctx, http.MethodPost, pathDeleteInList, ref)
	return err
}
