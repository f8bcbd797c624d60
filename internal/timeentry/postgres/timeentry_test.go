package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	entryDatamodel "github.com/frahmantamala/timetrack/internal/core/datamodel/timeentry"
	"github.com/frahmantamala/timetrack/internal/timeentry"
)

func TestTimeEntryRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TimeEntryRepository Suite")
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var _ = Describe("TimeEntryRepository", func() {
	var (
		db   *gorm.DB
		repo *TimeEntryRepository
		ctx  context.Context
	)

	newEntry := func(projectID, userID int64, spentOn *time.Time, approved string) *timeentry.TimeEntry {
		e := &timeentry.TimeEntry{
			ProjectID:    projectID,
			UserID:       userID,
			AuthorID:     userID,
			SpentOn:      spentOn,
			Hours:        2,
			CustomValues: map[int64]string{},
		}
		if approved != "" {
			e.CustomValues[2] = approved
		}
		Expect(repo.Create(ctx, e)).To(Succeed())
		return e
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&entryDatamodel.TimeEntry{}, &entryDatamodel.CustomValue{})).To(Succeed())
		repo = NewTimeEntryRepository(db)
	})

	AfterEach(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	It("round-trips custom values", func() {
		e := newEntry(10, 1, date(2025, 3, 1), "1")
		Expect(e.ID).NotTo(BeZero())

		got, err := repo.GetByID(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.CustomValues).To(HaveKeyWithValue(int64(2), "1"))
		Expect(got.SpentOn.Format("2006-01-02")).To(Equal("2025-03-01"))
	})

	It("updates columns and upserts custom values", func() {
		e := newEntry(10, 1, date(2025, 3, 1), "0")
		e.Hours = 7
		e.Comments = "fixed"
		e.CustomValues[2] = "1"
		e.CustomValues[5] = "extra"
		Expect(repo.Update(ctx, e)).To(Succeed())

		got, err := repo.GetByID(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Hours).To(Equal(7.0))
		Expect(got.Comments).To(Equal("fixed"))
		Expect(got.CustomValues).To(Equal(map[int64]string{2: "1", 5: "extra"}))

		var count int64
		Expect(db.Model(&entryDatamodel.CustomValue{}).Where("time_entry_id = ?", e.ID).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(2)))
	})

	It("reports missing rows", func() {
		_, err := repo.GetByID(ctx, 404)
		Expect(err).To(MatchError(timeentry.ErrNotFound))
		Expect(repo.Delete(ctx, 404)).To(MatchError(timeentry.ErrNotFound))
		Expect(repo.Update(ctx, &timeentry.TimeEntry{ID: 404, Hours: 1})).To(MatchError(timeentry.ErrNotFound))
	})

	It("deletes the entry with its custom values", func() {
		e := newEntry(10, 1, date(2025, 3, 1), "1")
		Expect(repo.Delete(ctx, e.ID)).To(Succeed())

		var count int64
		Expect(db.Model(&entryDatamodel.CustomValue{}).Count(&count).Error).To(Succeed())
		Expect(count).To(BeZero())
	})

	Describe("List", func() {
		BeforeEach(func() {
			newEntry(10, 1, date(2025, 1, 10), "1")
			newEntry(10, 2, date(2025, 2, 10), "yes")
			newEntry(10, 2, date(2025, 3, 10), "0")
			newEntry(20, 1, date(2025, 3, 11), "")
		})

		query := func(q timeentry.Query) ([]*timeentry.TimeEntry, int64) {
			q.ApprovedFieldID = 2
			entries, total, err := repo.List(ctx, q.Normalize())
			Expect(err).NotTo(HaveOccurred())
			return entries, total
		}

		It("filters by project and visibility", func() {
			pid, uid := int64(10), int64(2)
			entries, total := query(timeentry.Query{ProjectID: &pid, VisibleToUserID: &uid})
			Expect(total).To(Equal(int64(2)))
			for _, e := range entries {
				Expect(e.UserID).To(Equal(uid))
			}
		})

		It("filters by approval truthiness", func() {
			yes, no := true, false
			_, total := query(timeentry.Query{Approved: &yes})
			Expect(total).To(Equal(int64(2)))
			_, total = query(timeentry.Query{Approved: &no})
			Expect(total).To(Equal(int64(2)))
		})

		It("filters by date range inclusively", func() {
			entries, total := query(timeentry.Query{From: date(2025, 2, 10), To: date(2025, 3, 10)})
			Expect(total).To(Equal(int64(2)))
			Expect(entries[0].SpentOn.Format("2006-01-02")).To(Equal("2025-03-10"))
		})

		It("paginates but reports the full total", func() {
			entries, total := query(timeentry.Query{Limit: 1, Offset: 1})
			Expect(total).To(Equal(int64(4)))
			Expect(entries).To(HaveLen(1))
		})
	})
})
