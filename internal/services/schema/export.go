package schema

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportCSV writes the account's page inventory with classification and
// schema status as CSV, one row per page.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, accountID string) error {
	pages, err := s.pages.ListPages(ctx, accountID)
	if err != nil {
		return err
	}
	tiers, err := s.Tiers(ctx, accountID)
	if err != nil {
		return err
	}

	docStatus := make(map[string]string)
	docs, err := s.schemas.ListSchemaDocs(ctx, accountID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		docStatus[doc.PageID] = doc.Status
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"url", "path", "status", "page_type", "confidence", "classified_by", "tier", "schema_status",
	}); err != nil {
		return err
	}
	for _, p := range pages {
		tier := ""
		if p.PageType != "" {
			tier = string(tiers[p.PageType])
		}
		row := []string{
			p.URL,
			p.Path,
			p.Status,
			string(p.PageType),
			strconv.FormatFloat(p.Confidence, 'f', 2, 64),
			p.ClassifiedBy,
			tier,
			docStatus[p.ID],
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
