package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/BerylCAtieno/letterhead-merger/internal/assembler"
	"github.com/BerylCAtieno/letterhead-merger/internal/converter"
	"github.com/BerylCAtieno/letterhead-merger/internal/extractor"
	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/render"
	"github.com/BerylCAtieno/letterhead-merger/internal/storage"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
)

var (
	LetterheadMimeTypes = []string{models.MimePDF, models.MimeDOCX}
	BodyMimeTypes       = []string{models.MimeDOCX, models.MimePDF, models.MimeTXT}
)

type LetterheadService interface {
	ListLetterheads(ctx context.Context) ([]models.SourceFile, error)
	ListBodies(ctx context.Context) ([]models.SourceFile, error)
	StartSession(ctx context.Context, req *models.StartSessionRequest) (*models.SessionResponse, error)
	GetSession(ctx context.Context, id string) (*models.SessionResponse, error)
	Preview(ctx context.Context, id string) ([]byte, error)
	Crop(ctx context.Context, id string, rect models.Rect) (*models.SessionResponse, error)
	Signature(ctx context.Context, id string) ([]byte, error)
	Body(ctx context.Context, id string) (*models.BodyText, error)
	EditBody(ctx context.Context, id, text string) (*models.BodyText, error)
	Generate(ctx context.Context, id string, format models.Format) (*models.GeneratedDocument, error)
	Export(ctx context.Context, id string) (*models.ExportResponse, error)
	CloseSession(ctx context.Context, id string) error
	Shutdown()
}

type Options struct {
	LetterheadFolderID string
	BodyFolderID       string
	OutputFolderID     string
	WorkDir            string
	DPI                float64
	OutputFormat       models.Format
	MaxFileSize        int64
}

type letterheadService struct {
	store      storage.Store
	converter  converter.Converter
	rasterizer *render.Rasterizer
	opts       Options
	logger     *utils.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewService(store storage.Store, conv converter.Converter, rasterizer *render.Rasterizer, opts Options, logger *utils.Logger) LetterheadService {
	if opts.DPI <= 0 {
		opts.DPI = render.DefaultDPI
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = models.FormatDOCX
	}

	return &letterheadService{
		store:      store,
		converter:  conv,
		rasterizer: rasterizer,
		opts:       opts,
		logger:     logger,
		sessions:   make(map[string]*session),
	}
}

func (s *letterheadService) ListLetterheads(ctx context.Context) ([]models.SourceFile, error) {
	return s.store.List(ctx, s.opts.LetterheadFolderID, LetterheadMimeTypes)
}

func (s *letterheadService) ListBodies(ctx context.Context) ([]models.SourceFile, error) {
	return s.store.List(ctx, s.opts.BodyFolderID, BodyMimeTypes)
}

// StartSession runs SELECT_SOURCES through RASTERIZE and leaves the session
// waiting for a crop. A failing run is discarded along with its scratch space.
func (s *letterheadService) StartSession(ctx context.Context, req *models.StartSessionRequest) (*models.SessionResponse, error) {
	if req.LetterheadID == "" || req.BodyID == "" {
		return nil, utils.NewBadRequestError("letterhead_id and body_id are required")
	}

	sess, err := newSession(s.opts.WorkDir, s.logger)
	if err != nil {
		return nil, err
	}

	if err := s.prepare(ctx, sess, req); err != nil {
		if cerr := sess.cleanup(); cerr != nil {
			sess.logger.Warn("Failed to remove session directory", "error", cerr)
		}
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	sess.logger.Info("Session ready for crop",
		"letterhead", sess.letterhead.Name,
		"body", sess.body.Name,
		"paragraphs", len(sess.lines))

	return sess.response(), nil
}

func (s *letterheadService) prepare(ctx context.Context, sess *session, req *models.StartSessionRequest) error {
	lhRef, lhRaw, err := storage.Resolve(ctx, s.store, s.opts.LetterheadFolderID, req.LetterheadID, LetterheadMimeTypes, s.opts.MaxFileSize)
	if err != nil {
		return sess.fail(err)
	}
	bodyRef, bodyRaw, err := storage.Resolve(ctx, s.store, s.opts.BodyFolderID, req.BodyID, BodyMimeTypes, s.opts.MaxFileSize)
	if err != nil {
		return sess.fail(err)
	}
	sess.letterhead, sess.body = lhRef, bodyRef

	sess.enter(models.StageNormalize)
	pdf, err := converter.Normalize(ctx, s.converter, lhRaw, sess.dir)
	if err != nil {
		return sess.fail(err)
	}

	sess.enter(models.StageRasterize)
	page, err := s.rasterizer.Render(pdf, s.opts.DPI)
	if err != nil {
		return sess.fail(err)
	}
	header, footer, err := render.Bands(page)
	if err != nil {
		return sess.fail(err)
	}
	for path, img := range map[string]image.Image{
		sess.previewPath(): page.Image,
		sess.headerPath():  header,
		sess.footerPath():  footer,
	} {
		if err := render.SavePNG(img, path); err != nil {
			return sess.fail(&utils.RenderError{Stage: "save", Err: err})
		}
	}
	sess.page = page

	lines, err := extractor.ExtractLines(bodyRaw)
	if err != nil {
		return sess.fail(fmt.Errorf("failed to extract body text: %w", err))
	}
	sess.lines = lines

	sess.enter(models.StageCrop)
	return nil
}

func (s *letterheadService) GetSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return sess.response(), nil
}

func (s *letterheadService) Preview(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return os.ReadFile(sess.previewPath())
}

// Crop cuts the signature out of the page preview. It may be repeated until
// the document is generated; an invalid rectangle leaves the session as it was.
func (s *letterheadService) Crop(ctx context.Context, id string, rect models.Rect) (*models.SessionResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.require("crop", models.StageCrop, models.StageEditText); err != nil {
		return nil, err
	}

	cropped, err := render.Crop(sess.page.Image, rect)
	if err != nil {
		sess.logger.Warn("Rejected crop selection", "rect", rect, "error", err)
		return nil, err
	}

	if err := render.SavePNG(cropped, sess.signaturePath()); err != nil {
		return nil, sess.fail(&utils.RenderError{Stage: "crop", Err: err})
	}

	sess.hasCrop = true
	sess.enter(models.StageEditText)
	sess.logger.Info("Signature cropped", "width", rect.Width(), "height", rect.Height())

	return sess.response(), nil
}

func (s *letterheadService) Signature(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.hasCrop {
		return nil, utils.NewNotFoundError("No signature has been cropped yet")
	}
	return os.ReadFile(sess.signaturePath())
}

func (s *letterheadService) Body(ctx context.Context, id string) (*models.BodyText, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.require("read body", models.StageCrop, models.StageEditText, models.StageReadyForExport); err != nil {
		return nil, err
	}

	return &models.BodyText{Text: extractor.JoinLines(sess.lines), Lines: sess.lines}, nil
}

// EditBody replaces the body with text; every newline starts a paragraph.
// Editing after generation discards the generated document.
func (s *letterheadService) EditBody(ctx context.Context, id, text string) (*models.BodyText, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.require("edit body", models.StageEditText, models.StageReadyForExport); err != nil {
		return nil, err
	}

	sess.lines = extractor.SplitLines(text)
	sess.output = nil
	sess.exportedID = ""
	sess.enter(models.StageEditText)

	return &models.BodyText{Text: extractor.JoinLines(sess.lines), Lines: sess.lines}, nil
}

func (s *letterheadService) Generate(ctx context.Context, id string, format models.Format) (*models.GeneratedDocument, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.require("generate", models.StageEditText, models.StageReadyForExport); err != nil {
		return nil, err
	}
	if format == "" {
		format = s.opts.OutputFormat
	}

	asm, err := assembler.For(format)
	if err != nil {
		return nil, utils.NewBadRequestError(err.Error())
	}

	sess.enter(models.StageAssemble)
	out, err := asm.Assemble(assembler.Input{
		HeaderImage:    sess.headerPath(),
		FooterImage:    sess.footerPath(),
		BodyLines:      sess.lines,
		SignatureLines: nil,
		SignatureImage: sess.signaturePath(),
	})
	if err != nil {
		return nil, sess.fail(fmt.Errorf("failed to assemble document: %w", err))
	}

	data, err := io.ReadAll(out)
	if err != nil {
		return nil, sess.fail(fmt.Errorf("failed to buffer document: %w", err))
	}

	sess.output = &models.GeneratedDocument{
		Filename:    OutputFilename(sess.letterhead.Name, sess.body.Name, asm.Format()),
		ContentType: asm.Format().ContentType(),
		Data:        data,
	}
	sess.exportedID = ""
	sess.enter(models.StageReadyForExport)

	sess.logger.Info("Document generated",
		"filename", sess.output.Filename,
		"format", asm.Format(),
		"paragraphs", len(sess.lines),
		"size", len(data))

	return sess.output, nil
}

// Export uploads the generated document to the output folder.
func (s *letterheadService) Export(ctx context.Context, id string) (*models.ExportResponse, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.require("export", models.StageReadyForExport); err != nil {
		return nil, err
	}
	if s.opts.OutputFolderID == "" {
		return nil, utils.NewBadRequestError("No output folder configured")
	}

	doc := sess.output
	fileID, err := s.store.Upload(ctx, bytes.NewReader(doc.Data), doc.Filename, s.opts.OutputFolderID, doc.ContentType)
	if err != nil {
		// The generated document is still downloadable; export can be retried.
		sess.logger.Error("Failed to export document", "error", err)
		return nil, err
	}
	sess.exportedID = fileID

	sess.logger.Info("Document exported", "file_id", fileID, "folder", s.opts.OutputFolderID)

	return &models.ExportResponse{ID: fileID, Filename: doc.Filename, FolderID: s.opts.OutputFolderID}, nil
}

func (s *letterheadService) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return utils.NewNotFoundError("Session not found")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.cleanup(); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	sess.logger.Info("Session closed")
	return nil
}

// Shutdown closes every open session.
func (s *letterheadService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		if err := sess.cleanup(); err != nil {
			sess.logger.Warn("Failed to remove session directory", "error", err)
		}
		sess.mu.Unlock()
	}
}

func (s *letterheadService) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, utils.NewNotFoundError("Session not found")
	}
	return sess, nil
}
