package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
)

// session is one run of the pipeline. All of its artifacts live in dir.
type session struct {
	mu sync.Mutex

	id        string
	dir       string
	stage     models.Stage
	failure   error
	createdAt time.Time
	logger    *utils.Logger

	letterhead models.SourceFile
	body       models.SourceFile
	page       *models.RenderedPage
	lines      []string
	hasCrop    bool
	output     *models.GeneratedDocument
	exportedID string
}

func newSession(workDir string, logger *utils.Logger) (*session, error) {
	id := utils.GenerateID()
	dir := filepath.Join(workDir, "session-"+id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &session{
		id:        id,
		dir:       dir,
		stage:     models.StageSelectSources,
		createdAt: time.Now(),
		logger:    logger.ForSession(id),
	}, nil
}

func (s *session) artifact(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *session) previewPath() string   { return s.artifact("letterhead_preview.png") }
func (s *session) headerPath() string    { return s.artifact("header.png") }
func (s *session) footerPath() string    { return s.artifact("footer.png") }
func (s *session) signaturePath() string { return s.artifact("cropped_signature.png") }

func (s *session) enter(stage models.Stage) {
	s.logger.Debug("Entering stage", "from", s.stage, "to", stage)
	s.stage = stage
}

// fail makes the session terminal; the user has to start over.
func (s *session) fail(err error) error {
	s.logger.Error("Pipeline stage failed", "stage", s.stage, "error", err, "kind", utils.KindOf(err))
	s.failure = err
	s.stage = models.StageFailed
	return err
}

// require errors unless the session is in one of stages.
func (s *session) require(op string, stages ...models.Stage) error {
	if s.stage == models.StageFailed {
		return fmt.Errorf("%w: %s after failure: %v", utils.ErrWrongStage, op, s.failure)
	}
	for _, st := range stages {
		if s.stage == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in stage %s", utils.ErrWrongStage, op, s.stage)
}

func (s *session) cleanup() error {
	return os.RemoveAll(s.dir)
}

func (s *session) response() *models.SessionResponse {
	resp := &models.SessionResponse{
		ID:         s.id,
		Stage:      s.stage,
		Letterhead: s.letterhead,
		Body:       s.body,
		HasCrop:    s.hasCrop,
		ExportedID: s.exportedID,
		CreatedAt:  s.createdAt,
	}
	if s.page != nil {
		resp.PageWidth = s.page.PixelWidth()
		resp.PageHeight = s.page.PixelHeight()
		resp.DPI = s.page.DPI
	}
	if s.output != nil {
		resp.OutputName = s.output.Filename
	}
	if s.failure != nil {
		resp.Error = s.failure.Error()
	}
	return resp
}
