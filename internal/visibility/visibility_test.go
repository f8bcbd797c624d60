package visibility_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/policy"
	"github.com/frahmantamala/timetrack/internal/timeentry"
	"github.com/frahmantamala/timetrack/internal/visibility"
)

func TestVisibility(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Visibility Suite")
}

type staticRoles map[int64][]int64

func (s staticRoles) RoleIDsFor(ctx context.Context, projectID, userID int64) ([]int64, error) {
	return s[userID], nil
}

var _ = Describe("Visibility scope", func() {
	const projectID int64 = 10

	var (
		ctx      context.Context
		scope    *visibility.Scope
		employee = &auth.Actor{ID: 1, Login: "employee"}
		manager  = &auth.Actor{ID: 2, Login: "manager"}
		outsider = &auth.Actor{ID: 3, Login: "outsider"}
		admin    = &auth.Actor{ID: 4, Login: "admin", Admin: true}
	)

	BeforeEach(func() {
		ctx = context.Background()
		matrix, err := auth.NewPermissionMatrix(auth.DefaultGrants())
		Expect(err).NotTo(HaveOccurred())
		checker := auth.NewPermissionChecker(staticRoles{
			employee.ID: {auth.RoleEmployee},
			manager.ID:  {auth.RoleManager},
		}, matrix)
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		scope = visibility.NewScope(checker, lg)
	})

	Describe("ScopeTimeEntries", func() {
		pid := projectID

		It("restricts view-own holders to their own rows", func() {
			q, err := scope.ScopeTimeEntries(ctx, timeentry.Query{}, employee, &pid)
			Expect(err).NotTo(HaveOccurred())
			Expect(q.VisibleToUserID).NotTo(BeNil())
			Expect(*q.VisibleToUserID).To(Equal(employee.ID))
		})

		It("leaves the query alone for view-all holders and admins", func() {
			q, err := scope.ScopeTimeEntries(ctx, timeentry.Query{}, manager, &pid)
			Expect(err).NotTo(HaveOccurred())
			Expect(q.VisibleToUserID).To(BeNil())

			q, err = scope.ScopeTimeEntries(ctx, timeentry.Query{}, admin, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(q.VisibleToUserID).To(BeNil())
		})

		It("restricts actors without any permission to their own rows", func() {
			q, err := scope.ScopeTimeEntries(ctx, timeentry.Query{}, outsider, &pid)
			Expect(err).NotTo(HaveOccurred())
			Expect(*q.VisibleToUserID).To(Equal(outsider.ID))
		})

		It("restricts cross-project listing to own rows", func() {
			q, err := scope.ScopeTimeEntries(ctx, timeentry.Query{}, manager, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(*q.VisibleToUserID).To(Equal(manager.ID))
		})
	})

	Describe("CanView", func() {
		othersEntry := &timeentry.TimeEntry{ID: 5, ProjectID: projectID, UserID: 99}

		It("shows other users' entries only to view-all holders", func() {
			Expect(scope.CanView(ctx, manager, othersEntry)).To(Succeed())
			Expect(scope.CanView(ctx, admin, othersEntry)).To(Succeed())

			err := scope.CanView(ctx, employee, othersEntry)
			Expect(err).To(MatchError(policy.ErrPermissionDenied))
			Expect(policy.ReasonOf(err)).To(Equal(policy.ReasonTimeEntryNotVisible))
		})

		It("always shows owners their entries", func() {
			own := &timeentry.TimeEntry{ID: 6, ProjectID: projectID, UserID: outsider.ID}
			Expect(scope.CanView(ctx, outsider, own)).To(Succeed())
		})
	})

	Describe("CanList", func() {
		pid := projectID

		It("requires one of the view permissions on the project", func() {
			Expect(scope.CanList(ctx, employee, &pid)).To(Succeed())
			Expect(scope.CanList(ctx, manager, &pid)).To(Succeed())
			Expect(policy.ReasonOf(scope.CanList(ctx, outsider, &pid))).To(Equal(policy.ReasonMissingPermission))
		})

		It("allows cross-project listing", func() {
			Expect(scope.CanList(ctx, outsider, nil)).To(Succeed())
		})
	})
})
