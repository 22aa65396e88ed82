package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-autopost-platform/internal/database"
	"social-autopost-platform/models"
)

func TestExportCalendar(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	client := seedClient(t, store, "")
	other := seedClient(t, store, "")
	c := topicCampaign()
	c.ClientID = client.ID
	require.NoError(t, store.CreateCampaign(ctx, c))

	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	caption := "Hello"
	require.NoError(t, store.CreatePost(ctx, &models.Post{
		ClientID: client.ID, CampaignID: &c.ID, SlotKey: "2024-01-01#0",
		NewsUpdate: "first", ScheduledTime: at, Status: models.StatusWaitingApproval,
		GeneratedCaption: &caption, RequiresApproval: true,
	}))
	seedPost(t, store, client.ID, models.StatusPosted, at.Add(time.Hour))
	seedPost(t, store, other.ID, models.StatusPosted, at)

	svc := NewExportService(store, time.UTC)
	f, err := svc.ExportCalendar(ctx, Principal{ClientID: client.ID, Role: RoleClient}, models.PostFilter{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(CalendarSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, calendarHeaders[0], rows[0][0])
	assert.Equal(t, "2024-01-01 09:00", rows[1][0])
	assert.Equal(t, models.StatusWaitingApproval.Label(), rows[1][1])
	assert.Equal(t, "Launch", rows[1][2])
	assert.Equal(t, "Hello", rows[1][4])
	assert.Equal(t, "", rows[2][2])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, "Total Posts", summary[1][0])
	assert.Equal(t, "2", summary[1][1])
}
