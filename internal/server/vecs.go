package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
)

func (s *Server) ListVECs(c *gin.Context) {
	items, err := s.vecSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("hamlet")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) GetVEC(c *gin.Context) {
	v, err := s.vecSvc.Get(c.Request.Context(), c.Param("hamlet"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) VECForm(c *gin.Context) {
	form, err := s.vecSvc.Form(c.Request.Context(), c.Param("hamlet"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// VECCollection reports the household payments for ?month=YYYY-MM.
func (s *Server) VECCollection(c *gin.Context) {
	out, err := s.vecSvc.Collection(c.Request.Context(), c.Param("hamlet"), c.Query("month"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) CreateVEC(c *gin.Context) {
	var req vecdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequest("vec", "Invalid VEC data"))
		return
	}
	v, err := s.vecSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"vec": v})
}

func (s *Server) SaveVECDraft(c *gin.Context) {
	var draft vecdomain.Submission
	if err := formJSON(c, "draft", &draft); err != nil {
		AbortWithError(c, err)
		return
	}
	index, err := queryIndex(c, "index")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	files, err := s.attachments(c, "issue_img")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	draft.IssueImg = files["issue_img"]

	idx, saved, err := s.vecSvc.SaveDraft(c.Request.Context(), vecdomain.DraftRequest{
		Hamlet: c.Param("hamlet"),
		Index:  index,
		Draft:  draft,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"index": idx, "draft": saved})
}

func (s *Server) SubmitVEC(c *gin.Context) {
	var sub vecdomain.Submission
	if err := formJSON(c, "submission", &sub); err != nil {
		AbortWithError(c, err)
		return
	}
	draftIndex, err := queryIndex(c, "draft")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	files, err := s.attachments(c, "issue_img")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sub.IssueImg = files["issue_img"]

	idx, saved, err := s.vecSvc.Submit(c.Request.Context(), vecdomain.SubmitRequest{
		Hamlet:     c.Param("hamlet"),
		Submission: sub,
		DraftIndex: draftIndex,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"index": idx, "submission": saved})
}

func (s *Server) EditVEC(c *gin.Context) {
	var sub vecdomain.Submission
	idx, err := editBody(c, &sub)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	saved, err := s.vecSvc.Edit(c.Request.Context(), vecdomain.EditRequest{
		Hamlet:     c.Param("hamlet"),
		Index:      idx,
		Submission: sub,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"submission": saved})
}

func (s *Server) RemoveVECSubmission(c *gin.Context) {
	idx, err := removeIndex(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.vecSvc.RemoveSubmission(c.Request.Context(), c.Param("hamlet"), idx); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) DeleteVECDraft(c *gin.Context) {
	idx, err := pathIndex(c, "index")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.vecSvc.DeleteDraft(c.Request.Context(), c.Param("hamlet"), idx); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"message": "Draft deleted successfully"})
}

func (s *Server) DeleteVEC(c *gin.Context) {
	var body idBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequest("id", "id is required"))
		return
	}
	if err := s.vecSvc.Delete(c.Request.Context(), body.ID); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) ClearVECs(c *gin.Context) {
	n, err := s.vecSvc.Clear(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"cleared": n})
}

func (s *Server) BulkVECs(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, invalidRequest("file", "CSV file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		AbortWithError(c, invalidRequest("file", "CSV file is required"))
		return
	}
	defer f.Close()

	count, err := s.importer.VECs(c.Request.Context(), f)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"count": count})
}

func (s *Server) VECStats(c *gin.Context) {
	stats, err := s.vecSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
