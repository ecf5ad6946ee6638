package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "devconnect/internal/app"
	"devconnect/internal/bootstrap"
	"devconnect/internal/cache"
	"devconnect/internal/github"
	"devconnect/internal/platform/rabbitmq"
	"devconnect/internal/repository"
	"devconnect/internal/transport/http/handler"
	"devconnect/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.Mongo)
	postRepo := repository.NewPostRepository(app.Mongo)
	profileRepo := repository.NewProfileRepository(app.Mongo)

	cleanupPublisher := rabbitmq.NewCleanupPublisher(app.MQConn, app.Config.RabbitMQ.CleanupQueue)
	githubClient := github.NewClient(
		app.Config.Github.APIBaseURL,
		app.Config.Github.ClientID,
		app.Config.Github.ClientSecret,
		time.Duration(app.Config.Github.TimeoutSeconds)*time.Second,
	)
	repoCache := cache.NewRepoCache(app.Redis, time.Duration(app.Config.Redis.GithubRepoTTLSeconds)*time.Second)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireSeconds)*time.Second,
	)
	postService := appsvc.NewPostService(postRepo, userRepo)
	profileService := appsvc.NewProfileService(profileRepo, userRepo, cleanupPublisher, githubClient, repoCache)

	authHandler := handler.NewAuthHandler(authService)
	postHandler := handler.NewPostHandler(postService)
	profileHandler := handler.NewProfileHandler(profileService)

	authRequired := middleware.Auth(app.Config.Auth.JWTSecret)

	api := router.Group("/api")
	api.POST("/users", authHandler.Register)
	api.POST("/auth", authHandler.Login)
	api.GET("/auth", authRequired, authHandler.Me)

	profileGroup := api.Group("/profile")
	profileGroup.GET("", profileHandler.List)
	profileGroup.POST("", authRequired, profileHandler.Upsert)
	profileGroup.DELETE("", authRequired, profileHandler.DeleteAccount)
	profileGroup.GET("/me", authRequired, profileHandler.Me)
	profileGroup.GET("/user/:user_id", profileHandler.GetByUser)
	profileGroup.GET("/github/:username", profileHandler.GithubRepos)
	profileGroup.PUT("/experience", authRequired, profileHandler.AddExperience)
	profileGroup.DELETE("/experience/:exp_id", authRequired, profileHandler.RemoveExperience)
	profileGroup.PUT("/education", authRequired, profileHandler.AddEducation)
	profileGroup.DELETE("/education/:edu_id", authRequired, profileHandler.RemoveEducation)

	postGroup := api.Group("/posts")
	postGroup.Use(authRequired)
	postGroup.POST("", postHandler.Create)
	postGroup.GET("", postHandler.List)
	postGroup.GET("/:post_id", postHandler.Get)
	postGroup.DELETE("/:post_id", postHandler.Delete)
	postGroup.PUT("/like/:post_id", postHandler.Like)
	postGroup.PUT("/unlike/:post_id", postHandler.Unlike)
	postGroup.POST("/comments/:post_id", postHandler.AddComment)
	postGroup.DELETE("/comments/:post_id/:comment_id", postHandler.DeleteComment)

	return router
}
