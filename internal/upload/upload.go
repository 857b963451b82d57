// Package upload stores submission attachments on local disk.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// URLPrefix is the path attachments are served under.
const URLPrefix = "/Uploads"

type Store struct {
	dir   string
	clock clock.Clock
	log   *zap.Logger
}

type Params struct {
	fx.In

	Cfg   config.Config
	Clock clock.Clock
	Log   *zap.Logger
}

func NewStore(p Params) (*Store, error) {
	dir := strings.TrimSpace(p.Cfg.UploadDir)
	if dir == "" {
		dir = "Uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, clock: p.Clock, log: p.Log.Named("upload.store")}, nil
}

func (s *Store) Dir() string { return s.dir }

// Name builds the stored file name <field>-<unix-ms><ext>.
func (s *Store) Name(field, original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	name := slug.Make(field)
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s-%d%s", name, s.clock.Now().UnixMilli(), ext)
}

// Save writes an uploaded part and returns its public path.
func (s *Store) Save(field string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return s.Write(field, fh.Filename, src)
}

func (s *Store) Write(field, original string, r io.Reader) (string, error) {
	name := s.Name(field, original)
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	s.log.Debug("stored attachment", zap.String("field", field), zap.String("name", name))
	return URLPrefix + "/" + name, nil
}

// SaveForm stores the first file of each field present in form. Fields
// without a file are absent from the result.
func (s *Store) SaveForm(form *multipart.Form, fields ...string) (map[string]*string, error) {
	out := map[string]*string{}
	if form == nil {
		return out, nil
	}
	for _, field := range fields {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}
		path, err := s.Save(field, files[0])
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", field, err)
		}
		out[field] = &path
	}
	return out, nil
}

var Module = fx.Module("upload",
	fx.Provide(NewStore),
)
