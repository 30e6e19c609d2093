package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/graphrag-cypher/internal/platform/envutil"
)

var defaultAllowOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the origins listed in CORS_ALLOW_ORIGINS (comma separated),
// or the local dev origins when unset.
func CORS() gin.HandlerFunc {
	origins := defaultAllowOrigins
	if raw := envutil.String("CORS_ALLOW_ORIGINS", ""); raw != "" {
		origins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-Request-Id", "X-Trace-Id", "traceparent"},
		ExposeHeaders: []string{"X-Request-Id", "X-Trace-Id"},
	})
}
