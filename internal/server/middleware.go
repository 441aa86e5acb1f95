package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"reliefline/internal"
	"reliefline/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyIdentity contextKey = "identity"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireAuth verifies the caller's access token and attaches the
// identity projection to the request context. The token is accepted as
// a bearer header (mobile client) or as the encrypted cookie set at
// login.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		accessToken, ok := s.accessTokenFromRequest(r)
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "missing credentials")
			return
		}

		set, err := s.jwksCache.Lookup(r.Context(), s.jwksURL)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch JWKS")
			s.respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := jwt.Parse(
			[]byte(accessToken),
			jwt.WithKeySet(set),
			jwt.WithValidate(true),
		)
		if err != nil {
			s.logger.WithError(err).Debug("failed to parse JWT")
			s.respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		identity, err := identityFromToken(token)
		if err != nil {
			s.logger.WithError(err).Error("token carries no usable identity")
			s.respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"role":    identity.Role,
		}).Debug("authenticated user")

		ctx := context.WithValue(r.Context(), contextKeyIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) accessTokenFromRequest(r *http.Request) (string, bool) {

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), true
	}

	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return "", false
	}

	var accessToken string
	if err := s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken); err != nil {
		s.logger.WithError(err).Debug("failed to decrypt access token cookie")
		return "", false
	}

	return accessToken, true
}

// identityFromToken maps verified claims onto the identity projection
// the core consumes: {userId, username, role, contact}.
func identityFromToken(token jwt.Token) (types.Identity, error) {

	identity := types.Identity{Role: types.RoleUser}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return identity, errMissingSubject
	}
	identity.UserID = userID

	var username string
	if err := token.Get("username", &username); err == nil {
		identity.Username = username
	}
	if identity.Username == "" {
		// user pools configured with email sign-in put it in cognito:username
		if err := token.Get("cognito:username", &username); err == nil {
			identity.Username = username
		}
	}
	if identity.Username == "" {
		return identity, errMissingUsername
	}

	var role string
	if err := token.Get("custom:role", &role); err == nil && types.Role(role) == types.RoleVolunteer {
		identity.Role = types.RoleVolunteer
	}

	var contact string
	if err := token.Get("phone_number", &contact); err == nil {
		identity.Contact = contact
	}

	return identity, nil
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newPath := strings.TrimSuffix(path, "/")
			newURL := *r.URL
			newURL.Path = newPath

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
