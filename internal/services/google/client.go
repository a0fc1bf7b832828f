package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/foodkeeper/foodkeeper/internal/auth"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Client wraps the Google OAuth2 authorization-code flow and userinfo
// lookup. It produces a federated assertion for the reconciler; it knows
// nothing about local accounts.
type Client struct {
	oauthConfig *oauth2.Config
}

// New creates a Google OAuth client. redirectURL must match one of the
// authorized redirect URIs registered for the client ID.
func New(clientID, clientSecret, redirectURL string) (*Client, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	return &Client{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
	}, nil
}

// NewState generates a random state value for CSRF protection
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// AuthCodeURL builds the Google authorization URL for the given state
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userinfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades an authorization code for the subject's identity
func (c *Client) Exchange(ctx context.Context, code string) (auth.FederatedAssertion, error) {
	token, err := c.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return auth.FederatedAssertion{}, fmt.Errorf("google code exchange failed: %w", err)
	}

	info, err := c.fetchUserinfo(ctx, token)
	if err != nil {
		return auth.FederatedAssertion{}, err
	}

	if info.ID == "" || info.Email == "" {
		return auth.FederatedAssertion{}, errors.New("google userinfo missing required fields")
	}

	return auth.FederatedAssertion{
		Provider:    "google",
		SubjectID:   info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
		Picture:     info.Picture,
	}, nil
}

func (c *Client) fetchUserinfo(ctx context.Context, token *oauth2.Token) (*userinfo, error) {
	client := c.oauthConfig.Client(ctx, token)
	resp, err := client.Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read google userinfo: %w", err)
	}

	var info userinfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse google userinfo: %w", err)
	}
	return &info, nil
}
