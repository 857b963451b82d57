package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// indexBody carries a submission position, as sent by the edit and
// remove forms.
type indexBody struct {
	SubIndex *int `json:"subIndex"`
}

type idBody struct {
	ID string `json:"id" binding:"required"`
}

// formJSON decodes the JSON document sent in a multipart field, or the
// whole body for plain JSON requests.
func formJSON(c *gin.Context, field string, out any) error {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		raw := c.PostForm(field)
		if strings.TrimSpace(raw) == "" {
			raw = "{}"
		}
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return invalidRequest(field, "Invalid "+field+" data")
		}
		return nil
	}
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(out); err != nil {
		return invalidRequest(field, "Invalid "+field+" data")
	}
	return nil
}

// attachments stores the files of a multipart request. Plain JSON
// requests carry none.
func (s *Server) attachments(c *gin.Context, fields ...string) (map[string]*string, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return map[string]*string{}, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, invalidRequest("file", "Invalid multipart form")
	}
	return s.uploads.SaveForm(form, fields...)
}

func pathIndex(c *gin.Context, name string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return 0, invalidRequest(name, "Invalid "+name)
	}
	return idx, nil
}

// queryIndex reads an optional integer query parameter.
func queryIndex(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, invalidRequest(name, "Invalid "+name)
	}
	return &idx, nil
}

// editBody splits {subIndex, ...submission} into its index and entry.
func editBody(c *gin.Context, out any) (int, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return 0, invalidRequest("submission", "Invalid submission data")
	}
	var idx indexBody
	if err := json.Unmarshal(raw, &idx); err != nil || idx.SubIndex == nil {
		return 0, invalidRequest("subIndex", "Invalid submission index")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return 0, invalidRequest("submission", "Invalid submission data")
	}
	return *idx.SubIndex, nil
}

func removeIndex(c *gin.Context) (int, error) {
	var body indexBody
	if err := c.ShouldBindJSON(&body); err != nil || body.SubIndex == nil {
		return 0, invalidRequest("subIndex", "Invalid submission index")
	}
	return *body.SubIndex, nil
}

func ok(c *gin.Context, extra gin.H) {
	body := gin.H{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
