package reports_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"reliefline/internal/store"
	"reliefline/internal/utils"
	"reliefline/pkg/types"
)

// fakeStore is an in-memory ReportStore with the same merge and
// claim semantics as the Postgres repository: partial field updates,
// conditional claim, single-statement bulk mark-read.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*types.Report

	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string]*types.Report)}
}

func (f *fakeStore) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) CreateReport(_ context.Context, report *types.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr(); err != nil {
		return err
	}

	f.seq++
	report.ID = utils.NanoID()
	// strictly increasing timestamps keep newest-first ordering stable
	report.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	report.UpdatedAt = report.CreatedAt

	clone := *report
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeStore) Report(_ context.Context, reportID string) (*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr(); err != nil {
		return nil, err
	}

	report, ok := f.reports[reportID]
	if !ok {
		return nil, types.ErrReportNotFound
	}
	clone := *report
	return &clone, nil
}

func (f *fakeStore) ReportsByReporter(_ context.Context, username string) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.Report
	for _, report := range f.reports {
		if report.ReporterUsername == username {
			clone := *report
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeStore) Reports(_ context.Context, filter store.ReportFilter) ([]*types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.Report
	for _, report := range f.reports {
		if filter.DisasterType != "" && report.DisasterType != filter.DisasterType {
			continue
		}
		if filter.OpenOnly && (report.VolunteerResponded || report.IsClosed) {
			continue
		}
		clone := *report
		out = append(out, &clone)
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeStore) Claim(_ context.Context, reportID, volunteerID string, coords types.Coordinates) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr(); err != nil {
		return false, err
	}

	report, ok := f.reports[reportID]
	if !ok || report.VolunteerResponded || report.IsClosed {
		return false, nil
	}

	report.VolunteerResponded = true
	report.VolunteerID = utils.StringPtr(volunteerID)
	report.VolunteerLat = utils.Float64Ptr(coords.Latitude)
	report.VolunteerLng = utils.Float64Ptr(coords.Longitude)
	report.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeStore) SetClosed(_ context.Context, reportID string) error {
	return f.setFlag(reportID, func(r *types.Report) { r.IsClosed = true })
}

func (f *fakeStore) SetCompleted(_ context.Context, reportID string) error {
	return f.setFlag(reportID, func(r *types.Report) { r.IsCompleted = true })
}

func (f *fakeStore) setFlag(reportID string, apply func(*types.Report)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr(); err != nil {
		return err
	}

	report, ok := f.reports[reportID]
	if !ok || report.IsClosed {
		return nil
	}
	apply(report)
	report.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) MarkAllRead(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr(); err != nil {
		return err
	}

	for _, report := range f.reports {
		if report.ReporterUsername == username && !report.IsRead {
			report.IsRead = true
		}
	}
	return nil
}

func (f *fakeStore) UnreadCount(_ context.Context, username string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, report := range f.reports {
		if report.ReporterUsername == username && !report.IsRead {
			count++
		}
	}
	return count, nil
}

func sortNewestFirst(reports []*types.Report) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

// fakeDirectory backs the volunteer join.
type fakeDirectory struct {
	mu         sync.Mutex
	volunteers map[string]*types.Volunteer
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{volunteers: make(map[string]*types.Volunteer)}
}

func (f *fakeDirectory) add(v *types.Volunteer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volunteers[v.UserID] = v
}

func (f *fakeDirectory) Volunteer(_ context.Context, userID string) (*types.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	volunteer, ok := f.volunteers[userID]
	if !ok {
		return nil, types.ErrVolunteerNotFound
	}
	return volunteer, nil
}
