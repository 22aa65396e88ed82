package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/logger"
	"social-autopost-platform/models"
)

const (
	CalendarSheet = "Content Calendar"
	SummarySheet  = "Summary"
	exportTime    = "2006-01-02 15:04"
)

var calendarHeaders = []string{
	"Scheduled Time", "Status", "Campaign", "News Update", "Caption", "Requires Approval", "Image",
}

// ExportService renders post listings as spreadsheets.
type ExportService struct {
	store Store
	loc   *time.Location
}

func NewExportService(store Store, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{store: store, loc: loc}
}

// ExportCalendar builds a workbook with the caller's posts in schedule order
// and a per-status summary. The caller owns the returned file.
func (es *ExportService) ExportCalendar(ctx context.Context, p Principal, filter models.PostFilter) (*excelize.File, error) {
	if scope := p.Scope(); scope != nil {
		filter.ClientID = scope
	}
	posts, err := es.store.ListPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", CalendarSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	for i, header := range calendarHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(CalendarSheet, cell, header)
	}

	names := map[primitive.ObjectID]string{}
	counts := map[models.PostStatus]int{}
	for idx, post := range posts {
		row := idx + 2
		values := []interface{}{
			post.ScheduledTime.In(es.loc).Format(exportTime),
			post.Status.Label(),
			es.campaignName(ctx, names, post.CampaignID),
			post.NewsUpdate,
			post.Caption(),
			post.RequiresApproval,
			post.Image,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(CalendarSheet, cell, v)
		}
		counts[post.Status]++
	}

	f.SetColWidth(CalendarSheet, "A", "C", 20)
	f.SetColWidth(CalendarSheet, "D", "E", 60)
	f.SetColWidth(CalendarSheet, "F", "G", 18)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Export Date", time.Now().In(es.loc).Format(exportTime)},
		{"Total Posts", len(posts)},
		{"", ""},
		{"Status", "Count"},
	}
	for _, st := range []models.PostStatus{
		models.StatusDraft, models.StatusScheduled, models.StatusGenerating, models.StatusWaitingApproval,
		models.StatusApproved, models.StatusPublishing, models.StatusPosted, models.StatusError,
	} {
		summary = append(summary, []interface{}{st.Label(), counts[st]})
	}
	for i, line := range summary {
		f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", i+1), line[0])
		f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", i+1), line[1])
	}
	f.SetColWidth(SummarySheet, "A", "A", 28)

	logger.Debug("Calendar exported", "posts", len(posts))
	return f, nil
}

func (es *ExportService) campaignName(ctx context.Context, cache map[primitive.ObjectID]string, id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	if name, ok := cache[*id]; ok {
		return name
	}
	name := ""
	if c, err := es.store.GetCampaign(ctx, *id); err == nil {
		name = c.Name
	}
	cache[*id] = name
	return name
}
