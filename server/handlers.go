package server

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/problem"
)

type nodeInfo struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Display  string     `json:"display,omitempty"`
	State    string     `json:"state,omitempty"`
	Remark   string     `json:"remark,omitempty"`
	Answers  []string   `json:"answers,omitempty"`
	Missing  []string   `json:"missing,omitempty"`
	Plot     bool       `json:"plot,omitempty"`
	Children []nodeInfo `json:"children,omitempty"`
}

func describe(n problem.Node) nodeInfo {
	info := nodeInfo{ID: n.ID(), Name: n.Name()}
	if op, ok := n.(*problem.Operation); ok {
		info.Display = op.DisplayName(false)
		info.State = op.State().String()
		info.Remark = op.Remark()
		info.Missing = op.Missing()
		info.Plot = op.HasPlot()
		for name, a := range op.Answers() {
			info.Answers = append(info.Answers, name+"="+a.Text())
		}
		sort.Strings(info.Answers)
	}
	for _, child := range n.Children() {
		info.Children = append(info.Children, describe(child))
	}
	return info
}

func (s *Server) node(c *gin.Context) (problem.Node, bool) {
	n, ok := s.p.Find(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no node " + strconv.Quote(c.Param("id"))})
	}
	return n, ok
}

func (s *Server) operation(c *gin.Context) (*problem.Operation, bool) {
	n, ok := s.node(c)
	if !ok {
		return nil, false
	}
	op, ok := n.(*problem.Operation)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": n.Name() + " is a data set"})
	}
	return op, ok
}

func (s *Server) listOperations(c *gin.Context) {
	reg := s.p.Registry()
	if reg == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, reg.Categorized())
}

func (s *Server) listDataSets(c *gin.Context) {
	out := []nodeInfo{}
	for _, d := range s.p.DataSets() {
		out = append(out, describe(d))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getNode(c *gin.Context) {
	if n, ok := s.node(c); ok {
		c.JSON(http.StatusOK, describe(n))
	}
}

func (s *Server) detachNode(c *gin.Context) {
	if op, ok := s.operation(c); ok {
		op.Detach()
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) getColumns(c *gin.Context) {
	n, ok := s.node(c)
	if !ok {
		return
	}
	cols, err := n.Columns(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if cols == nil {
		cols = dataframe.Columns{}
	}
	c.JSON(http.StatusOK, cols)
}

func (s *Server) getCSV(c *gin.Context) {
	n, ok := s.node(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := problem.ExportCSV(c.Request.Context(), n, &buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) getCommands(c *gin.Context) {
	n, ok := s.node(c)
	if !ok {
		return
	}
	chain, _ := strconv.ParseBool(c.DefaultQuery("chain", "false"))
	cmds, err := n.RCommands(c.Request.Context(), chain)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.String(http.StatusOK, cmds)
}

func (s *Server) getPlot(c *gin.Context) {
	op, ok := s.operation(c)
	if !ok {
		return
	}
	if !op.HasPlot() {
		c.JSON(http.StatusNotFound, gin.H{"error": op.Name() + " does not plot"})
		return
	}
	path, err := op.Plot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.File(path)
}

// putAnswer takes the answer's text form as the request body.
func (s *Server) putAnswer(c *gin.Context) {
	op, ok := s.operation(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := op.SetAnswerText(c.Param("name"), string(body)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, describe(op))
}

type addRequest struct {
	Type string `json:"type" binding:"required"`
}

func (s *Server) addOperation(c *gin.Context) {
	parent, ok := s.node(c)
	if !ok {
		return
	}
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	op, err := s.p.Attach(parent, req.Type)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, describe(op))
}

func (s *Server) restartEngine(c *gin.Context) {
	if s.restart == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "restart not available"})
		return
	}
	if err := s.restart(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.p.MarkDirty()
	s.log.Info("engine restarted over http")
	c.Status(http.StatusNoContent)
}
