package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// CallerIdentity is the account the application default credentials act as
type CallerIdentity struct {
	Email          string
	ProjectID      string
	CredentialType string // service_account, authorized_user, ...
}

// GetCallerIdentity refreshes the client's credentials and resolves the
// account behind them
func GetCallerIdentity(ctx context.Context, client *Client) (*CallerIdentity, error) {
	creds := client.Credentials()
	token, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh GCP credentials (run 'gcloud auth application-default login'): %w", err)
	}
	if !token.Valid() {
		return nil, fmt.Errorf("GCP credentials are expired (run 'gcloud auth application-default login')")
	}

	identity := &CallerIdentity{ProjectID: client.Project()}
	identity.CredentialType, identity.Email = parseCredentialsJSON(creds.JSON)

	if identity.Email == "" {
		if email, err := fetchEmail(ctx, client); err == nil {
			identity.Email = email
		}
	}
	return identity, nil
}

// parseCredentialsJSON returns the credential type and, for service
// accounts, the client email. Metadata-server credentials carry no JSON.
func parseCredentialsJSON(data []byte) (credType, email string) {
	if len(data) == 0 {
		return "metadata", ""
	}
	var f struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return "", ""
	}
	if f.Type == "service_account" {
		return f.Type, f.ClientEmail
	}
	return f.Type, ""
}

func fetchEmail(ctx context.Context, client *Client) (string, error) {
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(client.Credentials().TokenSource))
	if err != nil {
		return "", fmt.Errorf("failed to create oauth2 client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get userinfo: %w", err)
	}
	return info.Email, nil
}
