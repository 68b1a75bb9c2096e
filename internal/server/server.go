// Package server carries the webhook HTTP surface. Everything here is a
// thin adapter: signature checking and event decoding belong to the LINE
// SDK, the decision logic lives in internal/bot.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meihsieh/bookship-bot/internal/store"
)

// Server wraps the gin engine and its listen address.
type Server struct {
	engine *gin.Engine
	addr   string
}

func New(addr string, line *LineHandler, st *store.XLSX, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", healthHandler(st, logger))
	r.POST("/callback", line.Callback)

	return &Server{engine: r, addr: addr}
}

func (s *Server) Run() error {
	return s.engine.Run(s.addr)
}

// healthHandler mirrors the operators' quick check: OK plus the worksheet
// names when the workbook opens, OK with the error otherwise.
func healthHandler(st *store.XLSX, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := st.SheetNames(context.Background())
		if err != nil {
			logger.Warn("health: workbook not readable", zap.Error(err))
			c.String(http.StatusOK, "OK / (workbook not loaded)")
			return
		}
		c.String(http.StatusOK, "OK / Worksheets: "+strings.Join(names, ", "))
	}
}
