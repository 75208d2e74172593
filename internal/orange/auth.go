package orange

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
)

const (
	executionCodeGrantType = "execution_code"
	offlineAccessScope     = "offline_access"
)

// AuthStrategy turns one account's credential into a bearer access token.
// Tokens are derived fresh on every call and never cached.
type AuthStrategy interface {
	Authenticate(ctx context.Context, cred config.Credential) (string, error)
}

// PasswordAuth is the resource-owner password flow of the older API
// generation: one form-encoded POST to the token endpoint.
type PasswordAuth struct {
	client    *Client
	tokenPath string
	oauth     oauth2.Config
}

// NewPasswordAuth returns a PasswordAuth that posts to gen.TokenPath with
// clientID as the OAuth client.
func NewPasswordAuth(client *Client, gen config.Generation, clientID string) (*PasswordAuth, error) {
	tokenURL, err := client.endpoint(gen.TokenPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	return &PasswordAuth{
		client:    client,
		tokenPath: gen.TokenPath,
		oauth: oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{offlineAccessScope},
		},
	}, nil
}

func (a *PasswordAuth) Authenticate(ctx context.Context, cred config.Credential) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client.http)
	tok, err := a.oauth.PasswordCredentialsToken(ctx, cred.Username, cred.Password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			err = &UpstreamError{Endpoint: a.tokenPath, StatusCode: re.Response.StatusCode, Err: err}
		}
		return "", &AuthError{Flow: string(config.FlowPassword), Step: "token", Err: err}
	}
	return tok.AccessToken, nil
}

// DeviceAuth is the newer three-step flow: an authorize call carrying the
// device identity and the long-lived offline token, followed by an
// execution_code token exchange.
type DeviceAuth struct {
	client   *Client
	gen      config.Generation
	clientID string

	// newToken generates state and nonce values.
	newToken func() string
}

func NewDeviceAuth(client *Client, gen config.Generation, clientID string) *DeviceAuth {
	return &DeviceAuth{
		client:   client,
		gen:      gen,
		clientID: clientID,
		newToken: uuid.NewString,
	}
}

type deviceIdentity struct {
	Device      string `json:"device"`
	DeviceName  string `json:"deviceName,omitempty"`
	DeviceToken string `json:"deviceToken"`
}

type authorizeResponse struct {
	AuthenticationID string `json:"authenticationId"`
	State            string `json:"state"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// loginHint identifies the subscriber to the authorize endpoint.
func loginHint(cred config.Credential) string {
	return cred.Username + ":" + cred.CustomerID
}

func (a *DeviceAuth) Authenticate(ctx context.Context, cred config.Credential) (string, error) {
	fail := func(step string, err error) (string, error) {
		return "", &AuthError{Flow: string(config.FlowDevice), Step: step, Err: err}
	}
	vars := map[string]string{"username": cred.Username, "customerId": cred.CustomerID}

	state, nonce := a.newToken(), a.newToken()
	authorizeURL, err := a.client.endpoint(a.gen.AuthorizePath, vars, url.Values{
		"response_type": {"code"},
		"client_id":     {a.clientID},
		"scope":         {"openid " + offlineAccessScope},
		"state":         {state},
		"nonce":         {nonce},
		"offline_token": {cred.OfflineToken},
		"login_hint":    {loginHint(cred)},
	})
	if err != nil {
		return fail("authorize", err)
	}

	var authz authorizeResponse
	identity := deviceIdentity{Device: cred.Device, DeviceName: cred.DeviceName, DeviceToken: cred.DeviceToken}
	if err := a.client.postJSON(ctx, authorizeURL, identity, &authz); err != nil {
		return fail("authorize", err)
	}
	if authz.AuthenticationID == "" {
		return fail("authorize", &SchemaError{Document: "authorize", Field: "authenticationId", Err: errMissing})
	}
	// The token call carries the state the provider answered with.
	if authz.State == "" {
		authz.State = state
	}

	tokenURL, err := a.client.endpoint(a.gen.TokenPath, vars, url.Values{
		"grant_type":        {executionCodeGrantType},
		"client_id":         {a.clientID},
		"authentication_id": {authz.AuthenticationID},
		"state":             {authz.State},
	})
	if err != nil {
		return fail("token", err)
	}

	var tok tokenResponse
	if err := a.client.postJSON(ctx, tokenURL, nil, &tok); err != nil {
		return fail("token", err)
	}
	if tok.AccessToken == "" {
		return fail("token", &SchemaError{Document: "token", Field: "access_token", Err: errMissing})
	}
	return tok.AccessToken, nil
}
