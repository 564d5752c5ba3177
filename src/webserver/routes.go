package webserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stratum-ops/opsdeck/src/data"
	"github.com/stratum-ops/opsdeck/src/geo"
	"gorm.io/gorm"
)

const defaultMaxSegmentNm = 50.0

type Routes struct {
	db *gorm.DB
}

func NewRoutes(db *gorm.DB) Routes { return Routes{db: db} }

func (h Routes) List(c *gin.Context) {
	routes, err := data.LoadRoutes(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(routes))
	for _, r := range routes {
		path, err := r.Path()
		if err != nil {
			log.Printf("webserver: %v", err)
			continue
		}
		out = append(out, gin.H{
			"id":        r.ID,
			"name":      r.Name,
			"waypoints": path,
			"length_nm": geo.PathLengthNm(path),
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

func (h Routes) Path(c *gin.Context) {
	maxNm := defaultMaxSegmentNm
	if v := c.Query("max_nm"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "max_nm must be a positive number"})
			return
		}
		maxNm = f
	}

	route, err := data.FindRoute(h.db, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"err": "route not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	path, err := route.Path()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	dense := geo.Densify(path, maxNm)
	c.JSON(http.StatusOK, gin.H{
		"id":        route.ID,
		"name":      route.Name,
		"max_nm":    maxNm,
		"points":    dense,
		"length_nm": geo.PathLengthNm(dense),
	})
}
