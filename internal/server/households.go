package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
)

var householdFiles = []string{"issue_img", "meter_image"}

// ListHouseholds returns id and name per household, or full records
// with all=true.
func (s *Server) ListHouseholds(c *gin.Context) {
	hamlet := strings.TrimSpace(c.Query("hamlet"))
	if c.Query("all") == "true" {
		items, err := s.householdSvc.List(c.Request.Context(), hamlet)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}
	items, err := s.householdSvc.ListSummaries(c.Request.Context(), hamlet)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) GetHousehold(c *gin.Context) {
	h, err := s.householdSvc.Get(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) HouseholdForm(c *gin.Context) {
	form, err := s.householdSvc.Form(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (s *Server) CreateHousehold(c *gin.Context) {
	var req hhdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequest("household", "Invalid household data"))
		return
	}
	h, err := s.householdSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"household": h})
}

func (s *Server) SaveHouseholdDraft(c *gin.Context) {
	var draft hhdomain.Submission
	if err := formJSON(c, "draft", &draft); err != nil {
		AbortWithError(c, err)
		return
	}
	index, err := queryIndex(c, "index")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	files, err := s.attachments(c, householdFiles...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	draft.IssueImg, draft.MeterImage = files["issue_img"], files["meter_image"]

	idx, saved, err := s.householdSvc.SaveDraft(c.Request.Context(), hhdomain.DraftRequest{
		CustomerID: c.Param("customer_id"),
		Index:      index,
		Draft:      draft,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"index": idx, "draft": saved})
}

func (s *Server) SubmitHousehold(c *gin.Context) {
	var sub hhdomain.Submission
	if err := formJSON(c, "submission", &sub); err != nil {
		AbortWithError(c, err)
		return
	}
	draftIndex, err := queryIndex(c, "draft")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	files, err := s.attachments(c, householdFiles...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sub.IssueImg, sub.MeterImage = files["issue_img"], files["meter_image"]

	idx, saved, err := s.householdSvc.Submit(c.Request.Context(), hhdomain.SubmitRequest{
		CustomerID: c.Param("customer_id"),
		Submission: sub,
		DraftIndex: draftIndex,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"index": idx, "submission": saved})
}

func (s *Server) EditHousehold(c *gin.Context) {
	var sub hhdomain.Submission
	idx, err := editBody(c, &sub)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	saved, err := s.householdSvc.Edit(c.Request.Context(), hhdomain.EditRequest{
		CustomerID: c.Param("customer_id"),
		Index:      idx,
		Submission: sub,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"submission": saved})
}

func (s *Server) RemoveHouseholdSubmission(c *gin.Context) {
	idx, err := removeIndex(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.householdSvc.RemoveSubmission(c.Request.Context(), c.Param("customer_id"), idx); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) DeleteHouseholdDraft(c *gin.Context) {
	idx, err := pathIndex(c, "index")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.householdSvc.DeleteDraft(c.Request.Context(), c.Param("customer_id"), idx); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"message": "Draft deleted successfully"})
}

func (s *Server) DeleteHousehold(c *gin.Context) {
	var body idBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequest("id", "id is required"))
		return
	}
	if err := s.householdSvc.Delete(c.Request.Context(), body.ID); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) ClearHouseholds(c *gin.Context) {
	n, err := s.householdSvc.Clear(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"cleared": n})
}

func (s *Server) BulkHouseholds(c *gin.Context) {
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

	count, err := s.importer.Households(c.Request.Context(), f)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"count": count})
}

func (s *Server) HouseholdStats(c *gin.Context) {
	stats, err := s.householdSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) HouseholdReceipt(c *gin.Context) {
	idx, err := pathIndex(c, "index")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	customerID := c.Param("customer_id")
	doc, err := s.exporter.Receipt(c.Request.Context(), customerID, idx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	name := fmt.Sprintf("receipt-%s-%d.pdf", strings.ReplaceAll(customerID, "/", "-"), idx)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", doc)
}
