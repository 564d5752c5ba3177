package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

type Console struct {
	sess *session.Session
}

func NewConsole(sess *session.Session) Console { return Console{sess: sess} }

func (h Console) Start(c *gin.Context) {
	h.sess.Start()
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (h Console) Stop(c *gin.Context) {
	h.sess.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (h Console) Reset(c *gin.Context) {
	h.sess.Reset()
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h Console) RunAgent(c *gin.Context) {
	id := types.AgentID(c.Param("id"))
	if err := h.sess.RunAgent(id); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrNoAnalyzer) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"agent": id, "state": "running"})
}

func (h Console) SetContext(c *gin.Context) {
	var req struct {
		SelectedRoute  string `json:"selected_route"`
		ExecutionPhase string `json:"execution_phase" binding:"omitempty,oneof=pending executing complete"`
		CotActive      bool   `json:"cot_active"`
		DebateCount    int    `json:"debate_count" binding:"omitempty,min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	h.sess.SetContext(types.Context{
		SelectedRoute:  req.SelectedRoute,
		ExecutionPhase: types.ExecutionPhase(req.ExecutionPhase),
		CotActive:      req.CotActive,
		DebateCount:    req.DebateCount,
	})
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h Console) Snapshot(c *gin.Context) {
	snap := h.sess.Snapshot()
	c.Header("ETag", `"`+snap.Digest+`"`)
	c.JSON(http.StatusOK, snap)
}
