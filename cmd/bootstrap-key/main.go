// Command bootstrap-key creates a household member and issues their first
// API key. The plaintext key is printed once and never stored.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/budgetbook/budgetbook/internal/auth"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/repository"
)

type output struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	KeyID     string   `json:"key_id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
}

// userStore is the part of the repository this command needs.
type userStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		userID      = flag.String("user-id", "household", "User ID to own the API key")
		email       = flag.String("email", "household@budgetbook.local", "User email")
		name        = flag.String("name", "bootstrap", "API key name")
		scopesInput = flag.String("scopes", "admin", "Comma-separated scopes (read,write,admin)")
		env         = flag.String("env", auth.EnvLive, "Key environment: live or test")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fatal("DATABASE_URL is required")
	}

	scopes, err := parseScopes(*scopesInput)
	if err != nil {
		fatal(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fatal("connect database: " + err.Error())
	}
	defer repo.Close()

	out, err := bootstrap(ctx, repo, *userID, *email, *name, *env, scopes)
	if err != nil {
		fatal(err.Error())
	}

	if err := render(os.Stdout, out, *format); err != nil {
		fatal(err.Error())
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func bootstrap(ctx context.Context, store userStore, userID, email, name, env string, scopes []string) (*output, error) {
	if err := ensureUser(ctx, store, userID, email); err != nil {
		return nil, err
	}

	generated, err := auth.GenerateAPIKey(env)
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	apiKey := &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    userID,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := store.CreateAPIKey(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	return &output{
		UserID:    userID,
		Email:     email,
		KeyID:     apiKey.ID,
		Key:       generated.Plaintext,
		KeyPrefix: apiKey.KeyPrefix,
		Scopes:    scopes,
	}, nil
}

func render(w io.Writer, out *output, format string) error {
	switch strings.ToLower(format) {
	case "plain":
		_, err := fmt.Fprintln(w, out.Key)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return errors.New("invalid format; use plain or json")
	}
}

func parseScopes(input string) ([]string, error) {
	scopes := make([]string, 0, 3)
	for _, part := range strings.Split(input, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !model.IsValidScope(scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		scopes = []string{model.ScopeAdmin}
	}
	return scopes, nil
}

func ensureUser(ctx context.Context, store userStore, userID, email string) error {
	existing, err := store.GetUserByID(ctx, userID)
	switch {
	case err == nil:
		if existing.Email != email {
			return fmt.Errorf("user %s exists with different email: %s", userID, existing.Email)
		}
		return nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("lookup user: %w", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email %s already used by user %s", email, byEmail.ID)
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("lookup email: %w", err)
	}

	user := &model.User{
		ID:        userID,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
