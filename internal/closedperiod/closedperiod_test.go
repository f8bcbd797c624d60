package closedperiod_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/closedperiod"
	"github.com/frahmantamala/timetrack/internal/timeentry"
)

func TestClosedPeriod(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Closed Period Suite")
}

type memoryStore struct {
	values map[string]string
	err    error
}

func (m *memoryStore) Get(ctx context.Context, name string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[name]
	return v, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, name, value string) error {
	m.values[name] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, name string) error {
	delete(m.values, name)
	return nil
}

func day(y int, mo time.Month, d int) *time.Time {
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var _ = Describe("Closed period policy", func() {
	var (
		ctx   context.Context
		store *memoryStore
		p     *closedperiod.Policy
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &memoryStore{values: map[string]string{}}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		p = closedperiod.NewPolicy(store, lg)
	})

	Context("with a cutoff of 2025-01-31", func() {
		BeforeEach(func() {
			store.values[closedperiod.SettingKey] = "2025-01-31"
		})

		It("rejects entries on the cutoff date", func() {
			err := p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(2025, 1, 31)})
			Expect(err).To(MatchError(closedperiod.ErrClosedPeriod))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(appErr.Code).To(Equal(internal.ErrCodeClosedPeriod))
			Expect(appErr.Reason()).To(Equal("closed_period"))
		})

		It("rejects entries before the cutoff", func() {
			Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(2024, 12, 1)})).
				To(MatchError(closedperiod.ErrClosedPeriod))
		})

		It("accepts entries after the cutoff", func() {
			Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(2025, 2, 1)})).To(Succeed())
		})

		It("compares calendar dates regardless of the time of day", func() {
			late := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)
			Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: &late})).
				To(MatchError(closedperiod.ErrClosedPeriod))
		})

		It("falls back to the creation date without spent_on", func() {
			Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{CreatedOn: *day(2025, 1, 15)})).
				To(MatchError(closedperiod.ErrClosedPeriod))
			Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{CreatedOn: *day(2025, 3, 1)})).To(Succeed())
		})
	})

	It("allows everything without a cutoff", func() {
		Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(1999, 1, 1)})).To(Succeed())

		store.values[closedperiod.SettingKey] = "  "
		Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(1999, 1, 1)})).To(Succeed())
	})

	It("treats a malformed cutoff as no cutoff", func() {
		store.values[closedperiod.SettingKey] = "end of january"
		Expect(p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(2025, 1, 1)})).To(Succeed())

		resp, err := p.Current(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Date).To(BeNil())
	})

	It("accepts the legacy dotted layout", func() {
		cutoff, err := closedperiod.ParseCutoff("31.01.2025")
		Expect(err).NotTo(HaveOccurred())
		Expect(cutoff).To(Equal(*day(2025, 1, 31)))

		_, err = closedperiod.ParseCutoff("31/01/2025")
		Expect(err).To(MatchError(closedperiod.ErrMalformedCutoff))
	})

	It("surfaces settings store failures", func() {
		store.err = errors.New("db down")
		err := p.ValidateNotInClosedPeriod(ctx, &timeentry.TimeEntry{SpentOn: day(2025, 1, 1)})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
	})

	Describe("SetCutoff", func() {
		admin := &auth.Actor{ID: 1, Login: "admin", Admin: true}

		It("stores and clears the cutoff", func() {
			resp, err := p.SetCutoff(ctx, admin, closedperiod.UpdateCutoffDTO{Date: "2025-01-31"})
			Expect(err).NotTo(HaveOccurred())
			Expect(*resp.Date).To(Equal("2025-01-31"))
			Expect(store.values).To(HaveKeyWithValue(closedperiod.SettingKey, "2025-01-31"))

			resp, err = p.SetCutoff(ctx, admin, closedperiod.UpdateCutoffDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Date).To(BeNil())
			Expect(store.values).NotTo(HaveKey(closedperiod.SettingKey))
		})

		It("rejects invalid dates", func() {
			_, err := p.SetCutoff(ctx, admin, closedperiod.UpdateCutoffDTO{Date: "2025-13-01"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("requires an administrator", func() {
			_, err := p.SetCutoff(ctx, &auth.Actor{ID: 2}, closedperiod.UpdateCutoffDTO{Date: "2025-01-31"})
			Expect(err).To(Equal(internal.ErrAdminRequired))
		})
	})
})
