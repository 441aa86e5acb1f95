package server

import (
	"encoding/json"
	"net/http"

	"reliefline/internal"
	"reliefline/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Role     string `json:"role"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	role := types.RoleUser
	if types.Role(req.Role) == types.RoleVolunteer {
		role = types.RoleVolunteer
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(req.Username),
		Password: aws.String(req.Password),
		UserAttributes: []cognitotypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(req.Email)},
			{Name: aws.String("phone_number"), Value: aws.String(req.Contact)},
			{Name: aws.String("custom:role"), Value: aws.String(string(role))},
		},
	}

	resp, err := s.cognitoClient.SignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Warn("signup rejected")
		s.respondError(w, http.StatusBadRequest, "registration failed")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"userId":    aws.ToString(resp.UserSub),
		"confirmed": resp.UserConfirmed,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: cognitotypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": req.Username,
			"PASSWORD": req.Password,
		},
	}

	resp, err := s.cognitoClient.InitiateAuth(r.Context(), input)
	if err != nil {
		// NotAuthorizedException, UserNotConfirmedException, etc.
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		s.respondError(w, http.StatusUnauthorized, "login failed")
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	identity, err := s.identityFromAccessToken(r, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to resolve identity from fresh token")
		s.respondError(w, http.StatusUnauthorized, "login failed")
		return
	}

	// Refresh the projection row the reporter-view join reads, and the
	// best-effort profile snapshot.
	if err := s.upsertProjection(r, identity); err != nil {
		s.logger.WithError(err).Warn("failed to refresh volunteer projection")
	}
	s.profiles.Put(r.Context(), identity)

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	s.respondJSON(w, http.StatusOK, map[string]any{
		"accessToken": accessToken,
		"expiresIn":   expiresIn,
		"profile":     identity,
	})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleProfile answers from the snapshot cache first so the client can
// paint immediately, falling back to the verified claims; the
// authoritative projection row refreshes the cache when it resolves.
func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	profile := identity
	if cached, ok := s.profiles.Get(r.Context(), identity.UserID); ok {
		profile = *cached
	}

	if volunteer, err := s.directory.Volunteer(r.Context(), identity.UserID); err == nil {
		profile = types.Identity{
			UserID:   volunteer.UserID,
			Username: volunteer.Username,
			Contact:  volunteer.Contact,
			Role:     volunteer.Role,
		}
		s.profiles.Put(r.Context(), profile)
	}

	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Service) identityFromAccessToken(r *http.Request, accessToken string) (types.Identity, error) {

	set, err := s.jwksCache.Lookup(r.Context(), s.jwksURL)
	if err != nil {
		return types.Identity{}, err
	}

	token, err := jwt.Parse([]byte(accessToken), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return types.Identity{}, err
	}

	return identityFromToken(token)
}

func (s *Service) upsertProjection(r *http.Request, identity types.Identity) error {
	return s.directory.Upsert(r.Context(), &types.Volunteer{
		UserID:   identity.UserID,
		Username: identity.Username,
		Contact:  identity.Contact,
		Role:     identity.Role,
	})
}
