package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/server"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
)

const defaultAuthTimeout = 5 * time.Minute

// AuthSpotify runs the OAuth flow for Spotify.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	return r.authorize(ctx, cmd, models.Spotify, r.config.Credentials.Spotify)
}

// AuthYouTube runs the OAuth flow for YouTube.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	return r.authorize(ctx, cmd, models.YouTube, r.config.Credentials.YouTube)
}

// authorize serves the local callback, sends the user to the consent page and stores the token.
func (r *Runner) authorize(ctx context.Context, cmd *cli.Command, service models.Service, creds shared.OAuthClientConfig) error {
	conf, err := services.OAuthConfig(service, creds)
	if err != nil {
		return err
	}

	handler := server.NewOAuthHandler(service, conf, server.NewState())
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	authURL := handler.AuthCodeURL()
	r.writePlainHeader(fmt.Sprintf("Connect %s", service.DisplayName()))
	r.writePlain("Open this URL to grant access:\n\n%s\n\n", authURL)
	if !cmd.Bool("no-browser") {
		if err := r.openURL(authURL); err != nil {
			r.logger.Warn("could not open browser, open the URL manually", "error", err)
		}
	}

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	r.logger.Info("waiting for authorization callback", "addr", addr)

	result, err := server.WaitForCallback(ctx, addr, router, handler, cmd.Duration("timeout"))
	if err != nil {
		return err
	}
	if err := r.tokens.Save(service, result.Token); err != nil {
		return err
	}

	r.logger.Info("authentication successful", "service", service)
	return r.writePlain("%s Connected to %s\n", r.palette.OK("✓"), service.DisplayName())
}

// AuthStatus reports which services have a stored token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	rows := make([][]string, 0, 2)
	for _, service := range []models.Service{models.Spotify, models.YouTube} {
		status := "connected"
		tok, err := r.tokens.Load(service)
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated):
			status = "not connected"
		case err != nil:
			status = err.Error()
		case !tok.Valid() && tok.RefreshToken == "":
			status = "expired"
		}
		rows = append(rows, []string{service.DisplayName(), status})
	}
	return r.prompt.PresentTable("Authentication", []string{"Service", "Status"}, rows)
}
