package api

import (
	"github.com/gin-gonic/gin"
)

// Router builds the HTTP handler.
//
//	GET  /api/v1/query                 latest tree (ETag, If-None-Match)
//	POST /api/v1/query                 store a new version
//	GET  /api/v1/query/versions        version summaries, newest first
//	GET  /api/v1/query/versions/:id    one stored version
//	GET  /api/v1/fields                registry with operators and editors
//	POST /api/v1/validate              completeness report and annotated tree
//	GET  /get-data, POST /save-data    legacy aliases of /api/v1/query
//	GET  /healthz
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.healthz)

	v1 := router.Group("/api/v1")
	{
		query := v1.Group("/query")
		{
			query.GET("", s.getQuery)
			query.POST("", s.requireSignature(), s.saveQuery)
			query.GET("/versions", s.listVersions)
			query.GET("/versions/:id", s.getVersion)
		}
		v1.GET("/fields", s.listFields)
		v1.POST("/validate", s.validateTree)
	}

	router.GET("/get-data", s.getQuery)
	router.POST("/save-data", s.requireSignature(), s.saveQuery)

	return router
}
