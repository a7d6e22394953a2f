package router

import (
	"net/http"

	_ "github.com/3Eeeecho/go-clouddrive/docs"
	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/handlers"
	"github.com/3Eeeecho/go-clouddrive/internal/middlewares"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers 包含初始化路由所需的所有处理器
type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Folder *handlers.FolderHandler
	File   *handlers.FileHandler
	Share  *handlers.ShareHandler
	Link   *handlers.LinkHandler
}

func InitRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		// 认证相关路由 (无需认证)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
		}

		// 公开链接 (匿名访问)
		linkGroup := v1.Group("/links/:link_id")
		{
			linkGroup.GET("", h.Link.ResolveLink)
			linkGroup.GET("/folders/:id", h.Link.GetFolderContents)
			linkGroup.GET("/files/:id", h.Link.GetFile)
		}

		// 需要认证的路由组
		authenticated := v1.Group("")
		authenticated.Use(middlewares.AuthMiddleware(cfg))

		userGroup := authenticated.Group("/users")
		{
			userGroup.GET("/me", h.User.GetProfile)
			userGroup.PUT("/me/password", h.User.ChangePassword)
		}

		folderGroup := authenticated.Group("/folders")
		{
			folderGroup.POST("", h.Folder.CreateFolder)
			folderGroup.GET("/:id", h.Folder.GetFolderContents)
			folderGroup.PATCH("/:id", h.Folder.UpdateFolder)
			folderGroup.DELETE("/:id", h.Folder.DeleteFolder)
		}

		fileGroup := authenticated.Group("/files")
		{
			fileGroup.POST("/init", h.File.InitUpload)
			fileGroup.GET("/recent", h.File.RecentFiles)
			fileGroup.GET("/starred", h.File.StarredFiles)
			fileGroup.GET("/usage", h.File.StorageUsage)
			fileGroup.GET("/:id", h.File.GetFile)
			fileGroup.PATCH("/:id", h.File.UpdateFile)
			fileGroup.DELETE("/:id", h.File.DeleteFile)
			fileGroup.POST("/:id/complete", h.File.CompleteUpload)
			fileGroup.POST("/:id/star", h.File.ToggleStar)
		}

		authenticated.GET("/search", h.File.Search)

		shareGroup := authenticated.Group("/shares")
		{
			shareGroup.POST("", h.Share.ShareWithUser)
			shareGroup.GET("", h.Share.ListShares)
			shareGroup.DELETE("/:id", h.Share.RevokeShare)
			shareGroup.POST("/links", h.Share.CreateLink)
			shareGroup.GET("/links", h.Share.ListLinks)
			shareGroup.DELETE("/links/:link_id", h.Share.RevokeLink)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, xerr.NotFoundCode, "Route not found")
	})

	return router
}
