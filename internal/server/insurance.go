package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	insdomain "github.com/smallbiznis/microgrid/internal/insurance/domain"
)

var claimFiles = []string{"claim_application_photo", "claiming_for_image"}

func (s *Server) GetHamletClaims(c *gin.Context) {
	claims, err := s.insuranceSvc.GetHamlet(c.Request.Context(), c.Param("hamlet"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (s *Server) ListClaims(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := s.insuranceSvc.ListAll(c.Request.Context(), status)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (s *Server) NextClaimRef(c *gin.Context) {
	ref, err := s.insuranceSvc.NextRefNumber(c.Request.Context(), c.Param("hamlet"), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim_ref_number": ref})
}

func (s *Server) SaveClaimDraft(c *gin.Context) {
	var claim insdomain.ClaimInput
	if err := formJSON(c, "draft", &claim); err != nil {
		AbortWithError(c, err)
		return
	}
	files, err := s.attachments(c, claimFiles...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	claim.ClaimApplicationPhoto, claim.ClaimingForImage = files["claim_application_photo"], files["claiming_for_image"]

	saved, err := s.insuranceSvc.SaveDraft(c.Request.Context(), insdomain.DraftRequest{
		Hamlet: c.Param("hamlet"),
		Claim:  claim,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"claim": saved})
}

func (s *Server) SubmitClaim(c *gin.Context) {
	var claim insdomain.ClaimInput
	if err := formJSON(c, "submission", &claim); err != nil {
		AbortWithError(c, err)
		return
	}
	draftIndex, err := queryIndex(c, "draft")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	files, err := s.attachments(c, claimFiles...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	claim.ClaimApplicationPhoto, claim.ClaimingForImage = files["claim_application_photo"], files["claiming_for_image"]

	saved, err := s.insuranceSvc.Submit(c.Request.Context(), insdomain.SubmitRequest{
		Hamlet:     c.Param("hamlet"),
		Claim:      claim,
		DraftIndex: draftIndex,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"claim": saved})
}

func (s *Server) DeleteClaimDraft(c *gin.Context) {
	idx, err := pathIndex(c, "index")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.insuranceSvc.DeleteDraft(c.Request.Context(), c.Param("hamlet"), idx); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"message": "Draft deleted successfully"})
}
