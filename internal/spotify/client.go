// Package spotify adapts the Spotify Web API to the track source, playback queue
// and playlist store used by the shuffler.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"bettershuffle/internal/core"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// MaxTracksPerRequest is the API limit for playlist writes
	MaxTracksPerRequest = 100
	// PageLimitPlaylistItems is the largest page size for playlist items
	PageLimitPlaylistItems = 100
	// PageLimitSavedTracks is the largest page size for the user's saved tracks
	PageLimitSavedTracks = 50
	// PageLimitPlaylists is the largest page size for playlist listings
	PageLimitPlaylists = 50
)

var errNotAuthenticated = errors.New("client not authenticated")

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
	userID string

	retry retryPolicy
	sleep func(ctx context.Context, d time.Duration) error
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
		retry:  defaultRetryPolicy(),
		sleep:  sleepContext,
	}
}

// newClientWithAPI wraps an already authenticated API client.
func newClientWithAPI(api *spotify.Client, logger *zap.Logger) *Client {
	return &Client{
		config: &core.SpotifyConfig{},
		logger: logger,
		client: api,
		retry:  defaultRetryPolicy(),
		sleep:  sleepContext,
	}
}

// Authenticate reuses the cached token when it still works and runs the
// interactive OAuth flow otherwise.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := spotify.New(c.auth.Client(ctx, token), spotify.WithRetry(true))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}
	c.userID = user.ID

	// the transport refreshes expired tokens; keep the refreshed one
	if refreshed, tokenErr := client.Token(); tokenErr == nil && refreshed.AccessToken != token.AccessToken {
		if saveErr := c.saveToken(refreshed); saveErr != nil {
			c.logger.Warn("Failed to save refreshed token", zap.Error(saveErr))
		}
	}

	c.logger.Info("Authenticated successfully",
		zap.String("user", user.DisplayName),
		zap.String("userID", user.ID))
	return nil
}

// ForceAuthenticate always runs the interactive OAuth flow and caches the new token.
func (c *Client) ForceAuthenticate(ctx context.Context) error {
	return c.startOAuthFlow(ctx)
}

// CurrentUserID returns the ID of the authenticated user.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	if c.client == nil {
		return "", errNotAuthenticated
	}
	if c.userID != "" {
		return c.userID, nil
	}

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return "", classifyError("current_user", err)
	}
	c.userID = user.ID
	return c.userID, nil
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	state := uuid.NewString()
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := spotify.New(c.auth.Client(ctx, token), spotify.WithRetry(true))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	c.userID = user.ID

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(c.config.TokenPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, fmt.Errorf("token file %s holds no token", c.config.TokenPath)
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, FilePermission)
}
