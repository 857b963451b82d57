package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) ExportCSV(c *gin.Context) {
	dataset := c.Param("dataset")
	var buf bytes.Buffer
	if err := s.exporter.WriteCSV(c.Request.Context(), dataset, &buf); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exporter.FileName(dataset, "csv")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) ExportXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.exporter.WriteXLSX(c.Request.Context(), &buf); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exporter.FileName("microgrid", "xlsx")))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
