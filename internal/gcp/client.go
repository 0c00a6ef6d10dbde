package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const scopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"

// Client wraps GCP credentials and configuration.
// It holds Application Default Credentials loaded via
// google.FindDefaultCredentials and is shared by the compute and DNS
// providers.
type Client struct {
	credentials *google.Credentials
	project     string
	zone        string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithProject sets the GCP project ID.
func WithProject(project string) Option {
	return func(c *Client) {
		c.project = project
	}
}

// WithZone sets the zone instances are created in.
func WithZone(zone string) Option {
	return func(c *Client) {
		c.zone = zone
	}
}

// NewClient creates a new GCP client using Application Default Credentials.
// The project falls back to the one carried by the credentials.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	creds, err := google.FindDefaultCredentials(ctx, scopeCloudPlatform)
	if err != nil {
		return nil, fmt.Errorf(
			"no GCP application default credentials found "+
				"(run 'gcloud auth application-default login'): %w",
			err,
		)
	}
	c.credentials = creds

	if c.project == "" && creds.ProjectID != "" {
		c.project = creds.ProjectID
	}
	if c.project == "" {
		return nil, fmt.Errorf("gcp project is not set and the credentials carry none")
	}

	return c, nil
}

// Project returns the configured GCP project ID.
func (c *Client) Project() string {
	return c.project
}

// Zone returns the configured zone.
func (c *Client) Zone() string {
	return c.zone
}

// Credentials returns the underlying google.Credentials.
func (c *Client) Credentials() *google.Credentials {
	return c.credentials
}

// ClientOptions returns the options that authenticate Google API clients.
func (c *Client) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithTokenSource(c.credentials.TokenSource)}
}
