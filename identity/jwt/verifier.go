package jwt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/w-h-a/doclens/identity"
	getsafe "github.com/w-h-a/doclens/util/get_safe"
)

type jwtVerifier struct {
	options identity.Options
	parser  *jwt.Parser
}

func (v *jwtVerifier) Verify(ctx context.Context, credential string) (identity.Principal, error) {
	claims := jwt.MapClaims{}

	token, err := v.parser.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return v.options.Secret, nil
	})
	if err != nil || !token.Valid {
		return identity.Principal{}, fmt.Errorf("%w: %v", identity.ErrInvalidCredential, err)
	}

	sub := getsafe.String(claims, "sub")
	if len(sub) == 0 {
		return identity.Principal{}, fmt.Errorf("%w: missing subject", identity.ErrInvalidCredential)
	}

	return identity.Principal{
		AccountID: sub,
		Email:     getsafe.FirstString(claims, "email", "preferred_username"),
	}, nil
}

// NewVerifier accepts HMAC-signed tokens carrying a "sub" claim.
func NewVerifier(opts ...identity.Option) identity.Verifier {
	options := identity.NewOptions(opts...)

	if len(options.Secret) == 0 {
		detail := "jwt verifier needs a secret"
		slog.ErrorContext(options.Context, detail)
		panic(detail)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithLeeway(options.Leeway),
		jwt.WithExpirationRequired(),
	}

	if len(options.Issuer) > 0 {
		parserOpts = append(parserOpts, jwt.WithIssuer(options.Issuer))
	}

	if len(options.Audience) > 0 {
		parserOpts = append(parserOpts, jwt.WithAudience(options.Audience))
	}

	return &jwtVerifier{
		options: options,
		parser:  jwt.NewParser(parserOpts...),
	}
}
