package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// ErrReportNotFound is returned by Get when no report exists for a date.
var ErrReportNotFound = errors.New("report not found")

// ErrInvalidDate is returned for a date key that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid report date")

var reportFilePattern = regexp.MustCompile(`^daily-report-(\d{4}-\d{2}-\d{2})\.json$`)

// ReportStore persists one daily report document per calendar date.
type ReportStore interface {
	Save(report models.DailyReport) error
	Get(date string) (*models.DailyReport, error)
	List() ([]string, error)
	Latest() (*models.DailyReport, error)
}

type fileReportStore struct {
	dir string
	mu  sync.Mutex
}

// NewReportStore creates a ReportStore writing
// daily-report-YYYY-MM-DD.json files into dir.
func NewReportStore(dir string) ReportStore {
	return &fileReportStore{dir: dir}
}

func (s *fileReportStore) path(date string) string {
	return filepath.Join(s.dir, "daily-report-"+date+".json")
}

// Save writes the report for its date, replacing any earlier report for the
// same date. Encoding is deterministic so identical reports produce
// identical bytes.
func (s *fileReportStore) Save(report models.DailyReport) error {
	if !validDate(report.Date) {
		return fmt.Errorf("saving report: %w %q", ErrInvalidDate, report.Date)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("saving report %s: encoding: %w", report.Date, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path(report.Date), data, 0o644); err != nil {
		return fmt.Errorf("saving report %s: %w", report.Date, err)
	}
	return nil
}

// Get loads the report stored for date.
func (s *fileReportStore) Get(date string) (*models.DailyReport, error) {
	if !validDate(date) {
		return nil, fmt.Errorf("loading report: %w %q", ErrInvalidDate, date)
	}
	data, err := os.ReadFile(s.path(date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, date)
		}
		return nil, fmt.Errorf("loading report %s: %w", date, err)
	}
	var report models.DailyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("loading report %s: decoding: %w", date, err)
	}
	return &report, nil
}

// List returns the dates of all stored reports in ascending order.
func (s *fileReportStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	dates := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := reportFilePattern.FindStringSubmatch(e.Name()); m != nil {
			dates = append(dates, m[1])
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// Latest returns the most recent report, or nil when none is stored.
func (s *fileReportStore) Latest() (*models.DailyReport, error) {
	dates, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	return s.Get(dates[len(dates)-1])
}

func validDate(date string) bool {
	return reportFilePattern.MatchString("daily-report-" + date + ".json")
}
