package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	_ "github.com/tazhibayda/quiz-auth-service/docs"
)

type RouterOptions struct {
	CORSOrigins []string
	// TraceService enables the Datadog gin middleware when set.
	TraceService string
}

func NewRouter(h *Handler, opt RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opt.TraceService != "" {
		r.Use(gintrace.Middleware(opt.TraceService))
	}
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r.Use(RequestID(), Metrics(), AccessLog(h.Log))
	if len(opt.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opt.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDKey},
			ExposeHeaders:    []string{requestIDKey},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/.well-known/jwks.json", h.JWKS)

	user := r.Group("/user")
	user.POST("/signup", h.Signup)
	user.POST("/login", h.Login)
	user.POST("/forgot-password", h.ForgotPassword)
	user.GET("/reset-password/:token", h.CheckResetToken)
	user.POST("/reset-password/:token", h.ResetPassword)

	authed := user.Group("", h.AuthJWT())
	authed.GET("/me", h.Me)
	authed.POST("/score", h.UpdateScore)

	oauth := r.Group("/auth")
	oauth.GET("/google", h.GoogleStart)
	oauth.GET("/google/callback", h.GoogleCallback)

	return r
}
