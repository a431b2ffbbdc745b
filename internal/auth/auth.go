// Package auth bootstraps Google API credentials for a pipeline run.
//
// Service-account credentials from the environment are preferred
// (GOOGLE_CREDENTIALS inline JSON or GOOGLE_APPLICATION_CREDENTIALS file
// path). When neither is set, the package falls back to an installed-app
// OAuth2 authorization-code flow: a client secret JSON file identifies the
// app, the granted token is cached in a local JSON file and reused on
// later runs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"receiptflow/internal/logger"
)

// Scopes covers every service the pipeline touches: Drive source listing,
// Cloud Storage archiving, Vision annotation and the Sheets report.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/devstorage.full_control",
	"https://www.googleapis.com/auth/cloud-vision",
	"https://www.googleapis.com/auth/spreadsheets",
}

// Options locates the files used by the interactive flow.
type Options struct {
	ClientSecretFile string
	TokenFile        string
}

// ErrMissingClientSecret is returned when no environment credentials exist
// and the client secret file for the interactive flow cannot be read.
var ErrMissingClientSecret = errors.New("missing credentials: set GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS, or provide a client secret file")

// ClientOptions resolves credentials once per run and returns the client
// options every API client in the bundle is constructed with.
func ClientOptions(ctx context.Context, opts Options) ([]option.ClientOption, error) {
	const op = "ClientOptions"

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, nil
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, nil
	}

	ts, err := tokenSource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return []option.ClientOption{option.WithTokenSource(ts)}, nil
}

// tokenSource builds an OAuth2 token source from the cached token file,
// running the interactive authorization flow when no valid token is cached.
func tokenSource(ctx context.Context, opts Options) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(opts.ClientSecretFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingClientSecret
		}
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}

	conf, err := google.ConfigFromJSON(secret, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file: %w", err)
	}

	tok, err := tokenFromFile(opts.TokenFile)
	if err != nil {
		tok, err = tokenFromWeb(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := saveToken(opts.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	return conf.TokenSource(ctx, tok), nil
}

// tokenFromWeb runs the interactive authorization-code exchange.
func tokenFromWeb(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	log := logger.WithComponent("auth")

	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Authorize this app in your browser, then paste the code here:\n%v\n\nCode: ", authURL)
	if err := browser.OpenURL(authURL); err != nil {
		log.Debug().Err(err).Msg("Could not open browser for authorization URL")
	}

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	log.Info().Msg("Authorization flow completed")
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	log := logger.WithComponent("auth")
	log.Info().Str("path", path).Msg("Caching OAuth token")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(tok)
}
