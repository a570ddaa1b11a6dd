package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/quizhub/internal/app"
	"github.com/dkeye/quizhub/internal/config"
	"github.com/dkeye/quizhub/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName   = "QuizhubSessions"
	tokenKey      = "client_token"
	sessionMaxAge = 3600 * 24 * 7
)

// Games is the part of the game manager the API drives.
type Games interface {
	Create(ctx context.Context, owner string) (*app.GameSession, error)
	List() []app.Info
	Stop(ctx context.Context, id domain.GameID, owner string) error
}

// Records looks games up in persistent storage.
type Records interface {
	RetrieveGame(ctx context.Context, id domain.GameID) (domain.GameRecord, error)
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the signed
// session cookie. The token identifies who created a game.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(tokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(tokenKey, token)
			if err := sess.Save(); err != nil {
				log.Error().Str("module", "adapters.http").Err(err).Msg("save session")
			}
		}
		c.Set(tokenKey, token)
		c.Next()
	}
}

type createResponse struct {
	ID      domain.GameID `json:"id"`
	Address string        `json:"address"`
	Port    int           `json:"port"`
}

func SetupRouter(cfg *config.Config, games Games, records Records) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		log.Warn().Str("module", "adapters.http").Msg("no session secret configured, sessions will not survive a restart")
		secret = genClientToken()
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: sessionMaxAge, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	api := r.Group("/api")

	api.POST("/games", func(c *gin.Context) {
		session, err := games.Create(c.Request.Context(), c.GetString(tokenKey))
		if err != nil {
			log.Error().Str("module", "adapters.http").Err(err).Msg("create game")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to create game"})
			return
		}
		srv := session.Server()
		c.JSON(http.StatusCreated, createResponse{
			ID:      session.Game().ID(),
			Address: srv.ExternalIPAddress(),
			Port:    srv.Port(),
		})
	})

	api.GET("/games", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"games": games.List()})
	})

	api.GET("/games/:id", func(c *gin.Context) {
		rec, err := records.RetrieveGame(c.Request.Context(), domain.GameID(c.Param("id")))
		switch {
		case errors.Is(err, domain.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case err != nil:
			log.Error().Str("module", "adapters.http").Err(err).Msg("retrieve game")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to look up game"})
		default:
			c.JSON(http.StatusOK, rec)
		}
	})

	api.DELETE("/games/:id", func(c *gin.Context) {
		err := games.Stop(c.Request.Context(), domain.GameID(c.Param("id")), c.GetString(tokenKey))
		switch {
		case errors.Is(err, domain.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, app.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your game"})
		case err != nil:
			log.Error().Str("module", "adapters.http").Err(err).Msg("stop game")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to stop game"})
		default:
			c.Status(http.StatusNoContent)
		}
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
