package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
)

// ExportResult lists what a dump produced.
type ExportResult struct {
	SubjectsCSV  string
	LinksCSV     string
	Workbook     string
	SubjectCount int
	LinkCount    int
}

// Exporter dumps the subject and link tables for downstream consumers.
// It applies no further pipeline logic; the tables are the interface.
type Exporter struct {
	subjects  repository.SubjectRepository
	links     repository.LinkRepository
	outputDir string
}

// NewExporter creates a new Exporter writing into outputDir.
func NewExporter(subjects repository.SubjectRepository, links repository.LinkRepository, outputDir string) *Exporter {
	return &Exporter{
		subjects:  subjects,
		links:     links,
		outputDir: outputDir,
	}
}

// Export writes subjects.csv, links.csv, and a two-sheet export.xlsx.
func (e *Exporter) Export(ctx context.Context) (*ExportResult, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	subjects, err := e.subjects.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	links, err := e.links.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}

	result := &ExportResult{
		SubjectsCSV:  filepath.Join(e.outputDir, "subjects.csv"),
		LinksCSV:     filepath.Join(e.outputDir, "links.csv"),
		Workbook:     filepath.Join(e.outputDir, "export.xlsx"),
		SubjectCount: len(subjects),
		LinkCount:    len(links),
	}

	subjectRows := subjectRows(subjects)
	linkRows := linkRows(links)

	if err := writeCSV(result.SubjectsCSV, subjectRows); err != nil {
		return nil, err
	}
	if err := writeCSV(result.LinksCSV, linkRows); err != nil {
		return nil, err
	}
	if err := writeWorkbook(result.Workbook, subjectRows, linkRows); err != nil {
		return nil, err
	}

	slog.Info("Export complete",
		"subjects", result.SubjectCount, "links", result.LinkCount, "dir", e.outputDir)
	return result, nil
}

func subjectRows(subjects []*entity.Subject) [][]string {
	rows := [][]string{{
		"id", "slug", "profile_url", "name", "image_url", "source_name", "source_url",
		"author", "description_text", "region", "country", "state", "sex",
		"date_of_killing", "previous_threats", "type_of_work", "sector",
		"sector_detail", "more_information", "contact_email", "created_at",
	}}
	for _, s := range subjects {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Slug,
			s.ProfileURL,
			s.Name,
			s.ImageURL,
			s.SourceName,
			s.SourceURL,
			s.Author,
			s.DescriptionText,
			s.Region,
			s.Country,
			s.State,
			s.Sex,
			formatDate(s.DateOfKilling),
			strconv.FormatBool(s.PreviousThreats),
			s.TypeOfWork,
			s.Sector,
			s.SectorDetail,
			s.MoreInformation,
			s.ContactEmail,
			s.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func linkRows(links []*entity.LinkRecord) [][]string {
	rows := [][]string{{
		"id", "subject_id", "label", "url", "is_active", "last_status_code",
		"contains_name", "is_archived", "archived_url", "archived_timestamp", "checked_at",
	}}
	for _, l := range links {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			strconv.FormatInt(l.SubjectID, 10),
			l.Label,
			l.URL,
			formatBool(l.IsActive),
			formatInt(l.LastStatusCode),
			formatBool(l.ContainsName),
			formatBool(l.IsArchived),
			formatString(l.ArchivedURL),
			formatString(l.ArchivedTimestamp),
			formatTime(l.CheckedAt),
		})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return w.Error()
}

func writeWorkbook(path string, subjectRows, linkRows [][]string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := fillSheet(wb, "Subjects", subjectRows); err != nil {
		return err
	}
	if err := fillSheet(wb, "Links", linkRows); err != nil {
		return err
	}
	wb.DeleteSheet("Sheet1")

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func fillSheet(wb *excelize.File, name string, rows [][]string) error {
	if _, err := wb.NewSheet(name); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}

func formatDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}
