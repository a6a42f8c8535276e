package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"cardboard/internal/container"
)

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level     DoctorIssueLevel `json:"level"`
	Code      string           `json:"code"`
	Message   string           `json:"message"`
	PageID    string           `json:"pageId,omitempty"`
	CardID    string           `json:"cardId,omitempty"`
	Container string           `json:"container,omitempty"`
}

type DoctorReport struct {
	Issues []DoctorIssue `json:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

// Doctor audits one page, or every page when pageID is empty.
func (s Store) Doctor(ctx context.Context, pageID string) (DoctorReport, error) {
	var pages []string
	if pageID = strings.TrimSpace(pageID); pageID != "" {
		if _, err := s.LoadPage(ctx, pageID); err != nil {
			var nf NotFoundError
			if !errors.As(err, &nf) {
				return DoctorReport{}, err
			}
			return DoctorReport{Issues: []DoctorIssue{{
				Level:   DoctorIssueLevelError,
				Code:    "page_missing",
				Message: err.Error(),
				PageID:  pageID,
			}}}, nil
		}
		pages = []string{pageID}
	} else {
		all, err := s.ListPages(ctx)
		if err != nil {
			return DoctorReport{}, err
		}
		for _, p := range all {
			pages = append(pages, p.ID)
		}
	}

	rep := DoctorReport{Issues: []DoctorIssue{}}
	for _, id := range pages {
		cards, err := s.LoadCards(ctx, id)
		if err != nil {
			return DoctorReport{}, err
		}
		for _, p := range container.Validate(cards) {
			rep.Issues = append(rep.Issues, DoctorIssue{
				Level:     DoctorIssueLevelError,
				Code:      string(p.Code),
				Message:   p.Message,
				PageID:    id,
				CardID:    p.CardID,
				Container: p.Container,
			})
		}
	}

	sp, err := s.Spool(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return DoctorReport{}, err
	}
	for _, key := range sp.Pending(ctx, pageID) {
		rep.Issues = append(rep.Issues, DoctorIssue{
			Level:   DoctorIssueLevelWarn,
			Code:    "spool_pending",
			Message: "unload flush not yet replayed: " + key,
			PageID:  strings.SplitN(key, ".", 2)[0],
		})
	}
	return rep, nil
}
