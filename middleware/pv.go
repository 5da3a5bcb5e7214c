package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/eduvolve/models"
)

// PageViewRecorder counts successful GETs per day and concrete path, for the
// given route templates only (e.g. /api/v1/lessons/:id).
func PageViewRecorder(db *gorm.DB, routes ...string) gin.HandlerFunc {
	tracked := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		tracked[r] = struct{}{}
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if _, ok := tracked[c.FullPath()]; !ok {
			return
		}

		now := time.Now()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		_ = db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
		}).Create(&models.PageView{Date: day, Path: c.Request.URL.Path, Count: 1}).Error
	}
}
