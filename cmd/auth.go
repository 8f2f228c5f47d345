package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"scbulk/internal/server"
	"scbulk/internal/shared"
	"scbulk/internal/soundcloud"
	"scbulk/internal/ui"
)

// AuthLogin performs the OAuth2 authorization code flow for SoundCloud.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// saves the exchanged token pair to disk.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			config, err = shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
		r.config = config
	}

	if config.Credentials.ClientID == "" || config.Credentials.ClientSecret == "" {
		return fmt.Errorf("%w: client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	token, err := r.doOAuth(config, "authorization")
	if err != nil {
		return err
	}

	cred := soundcloud.FromToken(token)
	path := r.tokenPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := soundcloud.SaveCredential(path, cred); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.logger.Infof("token saved to %v", path)

	r.writePlainln("%s Authorization successful", ui.OK("✓"))
	r.writePlain("%s Tokens saved to %s\n\n", ui.OK("✓"), path)
	r.writePlain("You can now use: scbulk merge --playlist <id> --playlist <id>\n")

	return nil
}

// AuthStatus checks the saved credential against the /me endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	cred, err := r.requireCredential()
	if err != nil {
		r.writePlain("%s Not authenticated\n", ui.Err("✗"))
		r.writePlain("Run 'scbulk auth login' to authorize.\n")
		return nil
	}

	user, err := r.client.Me(ctx, cred)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.writePlain("%s Authenticated as %s (ID %d)\n", ui.OK("✓"), user.Username, user.ID)
	if !cred.ExpiresAt.IsZero() {
		r.writePlain("Token expires: %s\n", cred.ExpiresAt.Format(time.RFC1123))
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, prefix string) (*oauth2.Token, error) {
	state := shared.GenerateID()

	oauthCfg := oauthConfig(config)
	authURL := oauthCfg.AuthCodeURL(state)

	oauthHandler := server.NewOAuthHandler(oauthCfg, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr, err := callbackAddr(config.Credentials.RedirectURI)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for SoundCloud %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s Could not open browser automatically.", ui.Warn("⚠"))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// callbackAddr derives the local listen address from the redirect URI.
func callbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: invalid redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "8080"
	}

	return fmt.Sprintf("%s:%s", host, port), nil
}
