package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"cardboard/internal/model"
)

type WriteOptions struct {
	IncludeHidden bool
	Overwrite     bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WritePage renders page to <toDir>/pages/<page-id>.md.
func WritePage(page model.Page, cards []model.Card, toDir string, opt WriteOptions) (WriteResult, error) {
	if strings.TrimSpace(page.ID) == "" {
		return WriteResult{}, errors.New("missing page id")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	md := RenderPageMarkdown(page, cards, RenderOptions{IncludeHidden: opt.IncludeHidden})

	outDir := filepath.Join(toDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	outPath := filepath.Join(outDir, page.ID+".md")
	if err := writeFile(outPath, []byte(md), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
