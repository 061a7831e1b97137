package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
)

// Converter turns an editable document into a fixed-layout PDF.
type Converter interface {
	ToPDF(ctx context.Context, inputPath, outDir string) (string, error)
}

// Office drives a headless office suite (LibreOffice's soffice by default).
type Office struct {
	Binary string
	logger *utils.Logger
}

func NewOffice(binary string, logger *utils.Logger) *Office {
	return &Office{Binary: binary, logger: logger}
}

// ToPDF runs the converter to completion and returns the path of the
// produced <outDir>/<basename>.pdf. Each outDir gets its own office profile
// so concurrent conversions never hand work to one another's instance.
func (o *Office) ToPDF(ctx context.Context, inputPath, outDir string) (string, error) {
	profile, err := ProfileURL(outDir)
	if err != nil {
		return "", &utils.ConversionError{Command: o.Binary, ExitCode: -1, Err: err}
	}

	args := []string{"-env:UserInstallation=" + profile, "--headless", "--convert-to", "pdf", inputPath, "--outdir", outDir}
	cmd := exec.CommandContext(ctx, o.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	command := o.Binary + " " + strings.Join(args, " ")
	o.logger.Debug("Running converter", "command", command)

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	output := OutputPath(inputPath, outDir)
	if runErr == nil {
		if _, err := os.Stat(output); err == nil {
			return output, nil
		}
	}

	convErr := &utils.ConversionError{
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if runErr != nil {
		convErr.Err = runErr
	} else {
		convErr.Err = fmt.Errorf("expected output %s was not produced", filepath.Base(output))
	}

	o.logger.Error("Conversion failed",
		"command", command,
		"exit_code", exitCode,
		"stdout", convErr.Stdout,
		"stderr", convErr.Stderr)

	return "", convErr
}

// ProfileURL is the file URL of the office user profile used for outDir.
func ProfileURL(outDir string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(outDir, ".lo-profile"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve profile directory: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// OutputPath is the artifact the converter writes for inputPath.
func OutputPath(inputPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(outDir, base+".pdf")
}

// Normalize returns the letterhead as PDF bytes. PDFs pass through; docx
// files are written to scratchDir and converted there.
func Normalize(ctx context.Context, conv Converter, raw models.RawDocument, scratchDir string) ([]byte, error) {
	switch raw.Format {
	case models.FormatPDF:
		return raw.Data, nil
	case models.FormatDOCX:
	default:
		return nil, fmt.Errorf("letterhead format %s cannot be rendered", raw.Format)
	}

	inputPath := filepath.Join(scratchDir, "letterhead.docx")
	if err := os.WriteFile(inputPath, raw.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write letterhead for conversion: %w", err)
	}

	outDir := filepath.Join(scratchDir, "converted")
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create conversion directory: %w", err)
	}

	pdfPath, err := conv.ToPDF(ctx, inputPath, outDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted letterhead: %w", err)
	}

	return data, nil
}
