package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"google.golang.org/api/option"
)

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier accepts tokens issued by /login and /register.
type JWTVerifier struct{}

func (JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	return IdentityFromToken(token)
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens issued to the mobile app.
// The role comes from the "role" custom claim and defaults to customer.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func NewFirebaseVerifierWith(client idTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{UserID: uid, Role: models.RoleCustomer}
	if email, ok := token.Claims["email"].(string); ok {
		id.Username = email
	}
	if role, ok := token.Claims["role"].(string); ok && role != "" {
		id.Role = role
	}
	return id, nil
}

// Chain tries each verifier in order and returns the first success.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, token string) (Identity, error) {
	errs := make([]error, 0, len(c))
	for _, v := range c {
		id, err := v.Verify(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{}, errors.Join(errs...)
}
