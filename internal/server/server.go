package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"reliefline/internal/reports"
	"reliefline/internal/store"
	"reliefline/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// ReportCore is the disaster-report core the handlers invoke. All
// role/ownership authorization happens behind it.
type ReportCore interface {
	CreateReport(ctx context.Context, caller types.Identity, input reports.CreateReportInput) (*types.Report, error)
	Respond(ctx context.Context, caller types.Identity, reportID string, coords *types.Coordinates) error
	Close(ctx context.Context, caller types.Identity, reportID string) error
	Complete(ctx context.Context, caller types.Identity, reportID string) error
	Report(ctx context.Context, caller types.Identity, reportID string) (*types.ReportView, error)
	ReporterView(ctx context.Context, caller types.Identity) ([]*types.ReportView, error)
	VolunteerView(ctx context.Context, caller types.Identity, filter store.ReportFilter) ([]*types.ReportView, error)
	UnreadCount(ctx context.Context, caller types.Identity) (int, error)
	MarkAllRead(ctx context.Context, caller types.Identity) error
}

// Subscriptions hands out live role-scoped report views.
type Subscriptions interface {
	Subscribe(ctx context.Context, identity types.Identity) (<-chan []*types.ReportView, func())
}

// Profiles is the best-effort profile snapshot cache.
type Profiles interface {
	Get(ctx context.Context, userID string) (*types.Identity, bool)
	Put(ctx context.Context, identity types.Identity)
}

// Directory resolves and refreshes the authoritative identity
// projection.
type Directory interface {
	Volunteer(ctx context.Context, userID string) (*types.Volunteer, error)
	Upsert(ctx context.Context, volunteer *types.Volunteer) error
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	core      ReportCore
	hub       Subscriptions
	profiles  Profiles
	directory Directory

	cognitoClient *cognitoidentityprovider.Client
	cookie        *securecookie.SecureCookie

	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	cognitoClient *cognitoidentityprovider.Client,
	core ReportCore,
	hub Subscriptions,
	profiles Profiles,
	directory Directory,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger: logger,
		config: config,

		core:      core,
		hub:       hub,
		profiles:  profiles,
		directory: directory,

		cognitoClient: cognitoClient,
		cookie:        securecookie.New(hashKey, blockKey),

		jwksCache: jwkCache,
		jwksURL:   jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			// no WriteTimeout: /reports/stream holds the response open
			MaxHeaderBytes: 1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.MetricsMiddleware)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", metricsHandler(), http.MethodGet)

	r.HandleFunc("/auth/register", s.handleRegister, http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin, http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/profile", s.handleProfile, http.MethodGet)

		r.HandleFunc("/reports", s.handleCreateReport, http.MethodPost)
		r.HandleFunc("/reports", s.handleListReports, http.MethodGet)
		r.HandleFunc("/reports/mine", s.handleMyReports, http.MethodGet)
		r.HandleFunc("/reports/stream", s.handleStream, http.MethodGet)
		r.HandleFunc("/reports/:id", s.handleGetReport, http.MethodGet)
		r.HandleFunc("/reports/:id/respond", s.handleRespond, http.MethodPost)
		r.HandleFunc("/reports/:id/close", s.handleClose, http.MethodPost)
		r.HandleFunc("/reports/:id/complete", s.handleComplete, http.MethodPost)

		r.HandleFunc("/notifications/unread", s.handleUnreadCount, http.MethodGet)
		r.HandleFunc("/notifications/read", s.handleMarkAllRead, http.MethodPost)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) identityFromContext(ctx context.Context) (types.Identity, error) {
	identity, ok := ctx.Value(contextKeyIdentity).(types.Identity)
	if !ok {
		return types.Identity{}, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}
