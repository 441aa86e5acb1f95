package reports_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"reliefline/internal/reports"
	"reliefline/internal/store"
	"reliefline/internal/utils"
	"reliefline/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reporter = types.Identity{UserID: "u-1", Username: "rima", Contact: "017000001", Role: types.RoleUser}
	vol1     = types.Identity{UserID: "v-1", Username: "karim", Contact: "018000001", Role: types.RoleVolunteer}
	vol2     = types.Identity{UserID: "v-2", Username: "salma", Contact: "018000002", Role: types.RoleVolunteer}

	dhaka = types.Coordinates{Latitude: 23.8, Longitude: 90.4}
)

func newTestService(t *testing.T) (*reports.Service, *fakeStore, *fakeDirectory) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	fs := newFakeStore()
	dir := newFakeDirectory()
	dir.add(&types.Volunteer{UserID: vol1.UserID, Username: vol1.Username, Contact: vol1.Contact, Role: types.RoleVolunteer})

	return reports.NewService(logger, fs, dir), fs, dir
}

func createReport(t *testing.T, svc *reports.Service, caller types.Identity) *types.Report {
	t.Helper()

	report, err := svc.CreateReport(context.Background(), caller, reports.CreateReportInput{
		DisasterType:  "Flood",
		Description:   "water rising near the embankment",
		LocationLabel: "Dhaka, Dhaka Division",
		Coordinates:   &dhaka,
	})
	require.NoError(t, err)
	return report
}

func TestCreateReport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("defaults and identity fields", func(t *testing.T) {
		report := createReport(t, svc, reporter)

		assert.NotEmpty(t, report.ID)
		assert.Equal(t, reporter.Username, report.ReporterUsername)
		assert.Equal(t, reporter.Contact, report.ReporterContact)
		assert.False(t, report.IsRead)
		assert.False(t, report.VolunteerResponded)
		assert.Nil(t, report.VolunteerID)
		assert.Equal(t, types.ReportStateOpen, report.State())
	})

	t.Run("missing disaster type rejected", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, reporter, reports.CreateReportInput{
			LocationLabel: "Sylhet",
		})
		assert.Error(t, err)
	})

	t.Run("out of range coordinates rejected", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, reporter, reports.CreateReportInput{
			DisasterType:  "Fire",
			LocationLabel: "Sylhet",
			Coordinates:   &types.Coordinates{Latitude: 123, Longitude: 90},
		})
		assert.Error(t, err)
	})

	t.Run("volunteers may not create reports", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, vol1, reports.CreateReportInput{
			DisasterType:  "Fire",
			LocationLabel: "Sylhet",
		})
		assert.ErrorIs(t, err, types.ErrRoleNotAllowed)
	})
}

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("claim sets volunteer fields together", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.True(t, stored.VolunteerResponded)
		require.NotNil(t, stored.VolunteerID)
		assert.Equal(t, vol1.UserID, *stored.VolunteerID)
		assert.Equal(t, dhaka.Latitude, utils.PtrFloat64(stored.VolunteerLat))
		assert.Equal(t, dhaka.Longitude, utils.PtrFloat64(stored.VolunteerLng))
		assert.Equal(t, types.ReportStateResponded, stored.State())
	})

	t.Run("second volunteer loses the claim", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))
		err := svc.Respond(ctx, vol2, report.ID, &types.Coordinates{Latitude: 24.9, Longitude: 91.8})
		assert.ErrorIs(t, err, types.ErrReportClaimed)

		// first responder untouched
		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, vol1.UserID, *stored.VolunteerID)
		assert.Equal(t, dhaka.Latitude, utils.PtrFloat64(stored.VolunteerLat))
	})

	t.Run("concurrent claims leave exactly one volunteer", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, caller := range []types.Identity{vol1, vol2} {
			wg.Add(1)
			go func(i int, caller types.Identity) {
				defer wg.Done()
				errs[i] = svc.Respond(ctx, caller, report.ID, &dhaka)
			}(i, caller)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, types.ErrReportClaimed)
			}
		}
		assert.Equal(t, 1, winners)

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.True(t, stored.VolunteerResponded)
		require.NotNil(t, stored.VolunteerID)
	})

	t.Run("re-responding to own claim is idempotent", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))
		assert.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))
	})

	t.Run("missing coordinates abort before any mutation", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		err := svc.Respond(ctx, vol1, report.ID, nil)
		assert.ErrorIs(t, err, types.ErrMissingLocation)

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.False(t, stored.VolunteerResponded)
	})

	t.Run("reporter role may not respond", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		err := svc.Respond(ctx, reporter, report.ID, &dhaka)
		assert.ErrorIs(t, err, types.ErrRoleNotAllowed)
	})

	t.Run("responding to a closed report is a silent no-op", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)
		require.NoError(t, svc.Close(ctx, reporter, report.ID))

		assert.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.False(t, stored.VolunteerResponded)
		assert.Equal(t, types.ReportStateClosed, stored.State())
	})

	t.Run("unknown report", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		err := svc.Respond(ctx, vol1, "nope", &dhaka)
		assert.ErrorIs(t, err, types.ErrReportNotFound)
	})
}

func TestClaimInvariant(t *testing.T) {
	// volunteer_id != nil <=> volunteer_responded, after any sequence
	// of respond calls.
	svc, fs, _ := newTestService(t)
	ctx := context.Background()

	first := createReport(t, svc, reporter)
	second := createReport(t, svc, reporter)

	_ = svc.Respond(ctx, vol1, first.ID, &dhaka)
	_ = svc.Respond(ctx, vol2, first.ID, &dhaka)
	_ = svc.Respond(ctx, vol2, second.ID, &dhaka)
	_ = svc.Respond(ctx, vol1, second.ID, &dhaka)

	for _, id := range []string{first.ID, second.ID} {
		stored, err := fs.Report(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, stored.VolunteerResponded, stored.VolunteerID != nil)
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("close is reporter-only and idempotent", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		err := svc.Close(ctx, vol1, report.ID)
		assert.ErrorIs(t, err, types.ErrNotReportOwner)

		other := types.Identity{UserID: "u-2", Username: "arif", Role: types.RoleUser}
		err = svc.Close(ctx, other, report.ID)
		assert.ErrorIs(t, err, types.ErrNotReportOwner)

		require.NoError(t, svc.Close(ctx, reporter, report.ID))
		require.NoError(t, svc.Close(ctx, reporter, report.ID))

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsClosed)
	})

	t.Run("complete requires the assigned volunteer", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		err := svc.Complete(ctx, vol1, report.ID)
		assert.ErrorIs(t, err, types.ErrNotAssigned)

		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))

		err = svc.Complete(ctx, vol2, report.ID)
		assert.ErrorIs(t, err, types.ErrNotAssigned)

		require.NoError(t, svc.Complete(ctx, vol1, report.ID))
		require.NoError(t, svc.Complete(ctx, vol1, report.ID))

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsCompleted)
		assert.Equal(t, types.ReportStateCompleted, stored.State())
	})

	t.Run("closed report ignores complete without error", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))
		require.NoError(t, svc.Close(ctx, reporter, report.ID))

		assert.NoError(t, svc.Complete(ctx, vol1, report.ID))

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsCompleted)
		assert.Equal(t, types.ReportStateClosed, stored.State())
	})

	t.Run("completed then closed keeps closed as effective state", func(t *testing.T) {
		svc, fs, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))
		require.NoError(t, svc.Complete(ctx, vol1, report.ID))
		require.NoError(t, svc.Close(ctx, reporter, report.ID))

		stored, err := fs.Report(ctx, report.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsCompleted)
		assert.True(t, stored.IsClosed)
		assert.Equal(t, types.ReportStateClosed, stored.State())
	})
}

func TestReadState(t *testing.T) {
	ctx := context.Background()

	t.Run("mark all read then count is zero", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		createReport(t, svc, reporter)
		createReport(t, svc, reporter)

		count, err := svc.UnreadCount(ctx, reporter)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, svc.MarkAllRead(ctx, reporter))

		count, err = svc.UnreadCount(ctx, reporter)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("mark all read with nothing unread is a no-op", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		require.NoError(t, svc.MarkAllRead(ctx, reporter))

		count, err := svc.UnreadCount(ctx, reporter)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("report created after the batch stays unread", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		createReport(t, svc, reporter)

		require.NoError(t, svc.MarkAllRead(ctx, reporter))
		createReport(t, svc, reporter)

		count, err := svc.UnreadCount(ctx, reporter)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("volunteers have no unread concept", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.UnreadCount(ctx, vol1)
		assert.ErrorIs(t, err, types.ErrRoleNotAllowed)
		assert.ErrorIs(t, svc.MarkAllRead(ctx, vol1), types.ErrRoleNotAllowed)
	})
}

func TestViews(t *testing.T) {
	ctx := context.Background()

	t.Run("reporter view joins volunteer projection", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		report := createReport(t, svc, reporter)
		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))

		views, err := svc.ReporterView(ctx, reporter)
		require.NoError(t, err)
		require.Len(t, views, 1)

		view := views[0]
		assert.True(t, view.VolunteerResponded)
		assert.Equal(t, types.ReportStateResponded, view.State)
		assert.Equal(t, vol1.Username, utils.PtrString(view.VolunteerUsername))
		assert.Equal(t, vol1.Contact, utils.PtrString(view.VolunteerContactNo))
	})

	t.Run("dangling volunteer reference degrades to placeholder", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		report := createReport(t, svc, reporter)
		require.NoError(t, svc.Respond(ctx, vol2, report.ID, &dhaka)) // vol2 not in directory

		views, err := svc.ReporterView(ctx, reporter)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Unknown Volunteer", utils.PtrString(views[0].VolunteerUsername))
		assert.Equal(t, "N/A", utils.PtrString(views[0].VolunteerContactNo))
	})

	t.Run("reporter view is scoped to own reports", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		createReport(t, svc, reporter)
		other := types.Identity{UserID: "u-2", Username: "arif", Contact: "017000002", Role: types.RoleUser}
		createReport(t, svc, other)

		views, err := svc.ReporterView(ctx, reporter)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, reporter.Username, views[0].ReporterUsername)
	})

	t.Run("volunteer view sees every incident", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		report := createReport(t, svc, reporter)
		createReport(t, svc, reporter)
		require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))

		views, err := svc.VolunteerView(ctx, vol1, store.ReportFilter{})
		require.NoError(t, err)
		assert.Len(t, views, 2)

		open, err := svc.VolunteerView(ctx, vol1, store.ReportFilter{OpenOnly: true})
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("volunteer view is volunteer-only", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.VolunteerView(ctx, reporter, store.ReportFilter{})
		assert.ErrorIs(t, err, types.ErrRoleNotAllowed)
	})

	t.Run("single report visibility", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		report := createReport(t, svc, reporter)

		_, err := svc.Report(ctx, vol1, report.ID)
		assert.NoError(t, err)

		other := types.Identity{UserID: "u-2", Username: "arif", Role: types.RoleUser}
		_, err = svc.Report(ctx, other, report.ID)
		assert.ErrorIs(t, err, types.ErrNotReportOwner)
	})
}

func TestEndToEndScenario(t *testing.T) {
	// Reporter files a flood report, sees it unread; the volunteer
	// claims it; the reporter's view shows the responder's name.
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.CreateReport(ctx, reporter, reports.CreateReportInput{
		DisasterType:  "Flood",
		LocationLabel: "Dhaka, Dhaka Division",
	})
	require.NoError(t, err)
	assert.False(t, report.IsRead)

	count, err := svc.UnreadCount(ctx, reporter)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)

	require.NoError(t, svc.Respond(ctx, vol1, report.ID, &dhaka))

	views, err := svc.ViewFor(ctx, reporter)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].VolunteerResponded)
	assert.Equal(t, vol1.Username, utils.PtrString(views[0].VolunteerUsername))
}

func TestStoreFailureSurfacesToCaller(t *testing.T) {
	svc, fs, _ := newTestService(t)
	ctx := context.Background()

	fs.failNext = context.DeadlineExceeded
	_, err := svc.CreateReport(ctx, reporter, reports.CreateReportInput{
		DisasterType:  "Fire",
		LocationLabel: "Khulna",
	})
	assert.Error(t, err)

	// next attempt goes through, nothing was partially applied
	_, err = svc.CreateReport(ctx, reporter, reports.CreateReportInput{
		DisasterType:  "Fire",
		LocationLabel: "Khulna",
	})
	assert.NoError(t, err)
}
