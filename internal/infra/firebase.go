// README: Caller identity from Firebase ID tokens, with optional revocation checks.
package infra

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"rideflow/internal/types"
)

var ErrTokenRevoked = errors.New("token revoked")

// FirebaseToken is the verified caller identity.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// Role reads the custom "role" claim. Missing or unknown values are riders.
func (t *FirebaseToken) Role() types.Role {
	v, _ := t.Claims["role"].(string)
	return types.ParseRole(v)
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type FirebaseOptions struct {
	ProjectID string
	// Empty means application default credentials.
	CredentialsFile string
	// CheckRevoked costs one Auth API round trip per request.
	CheckRevoked bool
}

// idTokenChecker is the subset of *auth.Client the verifier calls.
type idTokenChecker interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
}

type adminVerifier struct {
	checker      idTokenChecker
	checkRevoked bool
}

func NewFirebaseVerifier(ctx context.Context, o FirebaseOptions) (TokenVerifier, error) {
	var clientOpts []option.ClientOption
	if o.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(o.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: o.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase for project %q: %w", o.ProjectID, err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &adminVerifier{checker: client, checkRevoked: o.CheckRevoked}, nil
}

func (v *adminVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	var (
		tok *auth.Token
		err error
	)
	if v.checkRevoked {
		tok, err = v.checker.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		tok, err = v.checker.VerifyIDToken(ctx, idToken)
	}
	switch {
	case auth.IsIDTokenRevoked(err):
		return nil, ErrTokenRevoked
	case err != nil:
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return &FirebaseToken{UID: tok.UID, Claims: tok.Claims}, nil
}
