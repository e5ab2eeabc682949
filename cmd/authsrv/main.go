// Command authsrv runs the authorization server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/audit"
	"github.com/authforge/oauth2/config"
	"github.com/authforge/oauth2/generates"
	"github.com/authforge/oauth2/manage"
	"github.com/authforge/oauth2/migrate"
	"github.com/authforge/oauth2/models"
	"github.com/authforge/oauth2/scope"
	"github.com/authforge/oauth2/server"
	"github.com/authforge/oauth2/store"
)

func main() {
	_ = godotenv.Load()

	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	cfg, err := config.Load(dir)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	tokenStore, clientStore, err := buildStores(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	mcfg := manage.DefaultConfig()
	mcfg.CodeTTL = cfg.CodeTTL()
	mcfg.AccessTTL = cfg.AccessTTL()
	mcfg.RefreshTTL = cfg.RefreshTTL()
	if cfg.Scope.Policy == "intersect" {
		mcfg.ScopePolicy = scope.Intersect
	}

	manager := manage.NewManager(mcfg)
	manager.MapClientStorage(clientStore)
	manager.MapTokenStorage(tokenStore)
	manager.SetAuditLogger(audit.NewJSONLogger(log.New(os.Stdout, "", 0)))
	if url := os.Getenv("TOKEN_ENDPOINT_URL"); url != "" {
		manager.SetTokenEndpoint(url)
	}

	if cfg.Token.Kind == "jwt" {
		key, err := os.ReadFile(cfg.Token.JWTKeyFile)
		if err != nil {
			log.Fatalf("jwt key: %v", err)
		}
		method := jwt.GetSigningMethod(cfg.Token.JWTMethod)
		if method == nil {
			log.Fatalf("jwt: unknown signing method %q", cfg.Token.JWTMethod)
		}
		manager.MapAccessGenerate(generates.NewJWTAccessGenerate(cfg.Token.JWTKeyID, key, method))
	}

	srv := server.NewDefaultServer(manager)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := srv.HandleTokenRequest(w, r); err != nil {
			log.Printf("token: %v", err)
		}
	})
	r.Post("/oauth/introspect", func(w http.ResponseWriter, r *http.Request) {
		if err := srv.HandleIntrospectionRequest(w, r); err != nil {
			log.Printf("introspect: %v", err)
		}
	})
	r.Post("/oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		if err := srv.HandleRevocationRequest(w, r); err != nil {
			log.Printf("revoke: %v", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	log.Printf("authsrv listening on %s (store=%s, tokens=%s)", cfg.HTTP.Addr, cfg.Store.Kind, cfg.Token.Kind)
	log.Fatal(http.ListenAndServe(cfg.HTTP.Addr, r))
}

func buildStores(cfg *config.Config) (oauth2.TokenStore, oauth2.ClientStore, error) {
	switch cfg.Store.Kind {
	case "postgres":
		if cfg.Store.Migrate {
			err := migrate.Run(context.Background(), migrate.Options{
				Driver: "postgres",
				DSN:    cfg.Store.DSN,
				Logger: log.New(os.Stdout, "[migrate] ", log.LstdFlags),
			})
			if err != nil {
				return nil, nil, err
			}
		}
		db, err := gorm.Open(postgres.Open(cfg.Store.DSN), &gorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		return store.NewDBTokenStore(db), store.NewDBClientStore(db), nil

	case "redis":
		ts := store.NewRedisTokenStore(cfg.Store.RedisAddr, cfg.Store.Prefix)
		return ts, seededClientStore(), nil

	case "file":
		ts, err := store.NewFileTokenStore(cfg.Store.File)
		if err != nil {
			return nil, nil, err
		}
		return ts, seededClientStore(), nil

	default:
		ts, err := store.NewMemoryTokenStore()
		if err != nil {
			return nil, nil, err
		}
		return ts, seededClientStore(), nil
	}
}

// seededClientStore registers a development client so the in-memory backends
// are usable out of the box. Override via DEV_CLIENT_ID / DEV_CLIENT_SECRET.
func seededClientStore() *store.ClientStore {
	id := os.Getenv("DEV_CLIENT_ID")
	if id == "" {
		id = "dev-client"
	}
	secret := os.Getenv("DEV_CLIENT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}

	cs := store.NewClientStore()
	_ = cs.Set(id, &models.Client{
		ID:     id,
		Secret: secret,
		GrantTypes: []oauth2.GrantType{
			oauth2.ClientCredentials,
			oauth2.AuthorizationCode,
			oauth2.Refreshing,
		},
		RedirectURIs: []string{"http://localhost:9094/oauth2/callback"},
		Scopes:       []string{"read", "write"},
	})
	return cs
}
